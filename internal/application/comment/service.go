package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/id"
	"github.com/videotube-api/internal/pkg/validate"
)

type Service interface {
	AddToVideo(ctx context.Context, actorID, videoID string, req domain.CommentRequest) (*domain.Comment, error)
	AddToTweet(ctx context.Context, actorID, tweetID string, req domain.CommentRequest) (*domain.Comment, error)
	Update(ctx context.Context, actorID, commentID string, req domain.CommentRequest) (*domain.Comment, error)
	Delete(ctx context.Context, actorID, commentID string) error
	ListForVideo(ctx context.Context, actorID, videoID string, p listing.Params) (*listing.Page[domain.Comment], error)
	ListForTweet(ctx context.Context, tweetID string, p listing.Params) (*listing.Page[domain.Comment], error)
}

type commentStore interface {
	Put(ctx context.Context, c *domain.Comment) error
	Get(ctx context.Context, commentID string) (*domain.Comment, error)
	Update(ctx context.Context, commentID string, updates map[string]interface{}) (*domain.Comment, error)
	Delete(ctx context.Context, commentID string) error
	ListByParent(ctx context.Context, parentKey string) ([]domain.Comment, error)
	CountByParent(ctx context.Context, parentKey string) (int, error)
}

type videoStore interface {
	Get(ctx context.Context, videoID string) (*domain.Video, error)
}

type tweetStore interface {
	Get(ctx context.Context, tweetID string) (*domain.Tweet, error)
}

type purger interface {
	Purge(ctx context.Context, subjectType domain.SubjectType, subjectID string) error
}

type ServiceDeps struct {
	CommentRepo commentStore
	VideoRepo   videoStore
	TweetRepo   tweetStore
	Purger      purger
	Owners      listing.OwnerLoader
	Clock       clockwork.Clock
}

type service struct {
	comments commentStore
	videos   videoStore
	tweets   tweetStore
	purger   purger
	owners   listing.OwnerLoader
	clock    clockwork.Clock
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		comments: deps.CommentRepo,
		videos:   deps.VideoRepo,
		tweets:   deps.TweetRepo,
		purger:   deps.Purger,
		owners:   deps.Owners,
		clock:    deps.Clock,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	return s
}

func (s *service) AddToVideo(ctx context.Context, actorID, videoID string, req domain.CommentRequest) (*domain.Comment, error) {
	if err := s.visibleVideo(ctx, actorID, videoID); err != nil {
		return nil, err
	}
	return s.add(ctx, actorID, domain.ContentKey(domain.SubjectVideo, videoID), req)
}

func (s *service) AddToTweet(ctx context.Context, actorID, tweetID string, req domain.CommentRequest) (*domain.Comment, error) {
	if err := s.existingTweet(ctx, tweetID); err != nil {
		return nil, err
	}
	return s.add(ctx, actorID, domain.ContentKey(domain.SubjectTweet, tweetID), req)
}

func (s *service) add(ctx context.Context, actorID, parentKey string, req domain.CommentRequest) (*domain.Comment, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	now := s.clock.Now().UTC()
	c := &domain.Comment{
		CommentID: id.New(),
		ParentKey: parentKey,
		OwnerID:   actorID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.comments.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, actorID, commentID string, req domain.CommentRequest) (*domain.Comment, error) {
	if _, err := s.loadOwned(ctx, actorID, commentID); err != nil {
		return nil, err
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	return s.comments.Update(ctx, commentID, map[string]interface{}{
		"content":    req.Content,
		"updated_at": s.clock.Now().UTC(),
	})
}

func (s *service) Delete(ctx context.Context, actorID, commentID string) error {
	if _, err := s.loadOwned(ctx, actorID, commentID); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	if err := s.purger.Purge(ctx, domain.SubjectComment, commentID); err != nil {
		return fmt.Errorf("comment deleted, cleanup incomplete: %w", err)
	}
	return nil
}

func (s *service) ListForVideo(ctx context.Context, actorID, videoID string, p listing.Params) (*listing.Page[domain.Comment], error) {
	if err := s.visibleVideo(ctx, actorID, videoID); err != nil {
		return nil, err
	}
	return s.list(ctx, domain.ContentKey(domain.SubjectVideo, videoID), p)
}

func (s *service) ListForTweet(ctx context.Context, tweetID string, p listing.Params) (*listing.Page[domain.Comment], error) {
	if err := s.existingTweet(ctx, tweetID); err != nil {
		return nil, err
	}
	return s.list(ctx, domain.ContentKey(domain.SubjectTweet, tweetID), p)
}

func (s *service) list(ctx context.Context, parentKey string, p listing.Params) (*listing.Page[domain.Comment], error) {
	q := listing.Query[domain.Comment]{
		Resource: "comments",
		Fetch:    func(ctx context.Context) ([]domain.Comment, error) { return s.comments.ListByParent(ctx, parentKey) },
		Count:    func(ctx context.Context) (int, error) { return s.comments.CountByParent(ctx, parentKey) },
		OwnerOf:  func(c domain.Comment) string { return c.OwnerID },
		Attach:   func(c *domain.Comment, o domain.Owner) { c.Owner = &o },
		Text: func(c domain.Comment) []string {
			fields := []string{c.Content}
			if c.Owner != nil {
				fields = append(fields, c.Owner.Username, c.Owner.FullName)
			}
			return fields
		},
		SortKeys: map[string]func(a, b domain.Comment) int{
			"createdAt": listing.ByTime(func(c domain.Comment) time.Time { return c.CreatedAt }),
			"updatedAt": listing.ByTime(func(c domain.Comment) time.Time { return c.UpdatedAt }),
		},
	}
	return listing.Run(ctx, q, p, s.owners)
}

func (s *service) visibleVideo(ctx context.Context, actorID, videoID string) error {
	if err := id.Check("video", videoID); err != nil {
		return err
	}
	v, err := s.videos.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("video does not exist: %w", domain.ErrNotFound)
		}
		return err
	}
	return domain.AssertVisible(v, actorID)
}

func (s *service) existingTweet(ctx context.Context, tweetID string) error {
	if err := id.Check("tweet", tweetID); err != nil {
		return err
	}
	if _, err := s.tweets.Get(ctx, tweetID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("tweet does not exist: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, actorID, commentID string) (*domain.Comment, error) {
	if err := id.Check("comment", commentID); err != nil {
		return nil, err
	}
	c, err := s.comments.Get(ctx, commentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("comment does not exist: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	if err := domain.AssertOwner(c, actorID); err != nil {
		return nil, err
	}
	return c, nil
}
