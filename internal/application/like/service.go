package like

import (
	"context"
	"errors"
	"fmt"

	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/application/tweet"
	"github.com/videotube-api/internal/application/video"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/id"
	"github.com/videotube-api/internal/pkg/metrics"
)

type Service interface {
	// Toggle likes the subject if the actor has not liked it yet, otherwise
	// removes the like.
	Toggle(ctx context.Context, actorID string, subjectType domain.SubjectType, subjectID string) (domain.ToggleResult, error)
	LikedVideos(ctx context.Context, actorID string, p listing.Params) (*listing.Page[domain.Video], error)
	LikedTweets(ctx context.Context, actorID string, p listing.Params) (*listing.Page[domain.Tweet], error)
}

type relationStore interface {
	Toggle(ctx context.Context, rel domain.Relation) (domain.ToggleResult, error)
	ListByActor(ctx context.Context, actorID, prefix string) ([]domain.Relation, error)
}

type videoStore interface {
	Get(ctx context.Context, videoID string) (*domain.Video, error)
	BatchGet(ctx context.Context, ids []string) ([]domain.Video, error)
}

type tweetStore interface {
	Get(ctx context.Context, tweetID string) (*domain.Tweet, error)
	BatchGet(ctx context.Context, ids []string) ([]domain.Tweet, error)
}

type commentStore interface {
	Get(ctx context.Context, commentID string) (*domain.Comment, error)
}

type ServiceDeps struct {
	RelationRepo relationStore
	VideoRepo    videoStore
	TweetRepo    tweetStore
	CommentRepo  commentStore
	Owners       listing.OwnerLoader
}

type service struct {
	relations relationStore
	videos    videoStore
	tweets    tweetStore
	comments  commentStore
	owners    listing.OwnerLoader
}

func NewService(deps ServiceDeps) Service {
	return &service{
		relations: deps.RelationRepo,
		videos:    deps.VideoRepo,
		tweets:    deps.TweetRepo,
		comments:  deps.CommentRepo,
		owners:    deps.Owners,
	}
}

func (s *service) Toggle(ctx context.Context, actorID string, subjectType domain.SubjectType, subjectID string) (domain.ToggleResult, error) {
	if err := s.assertExists(ctx, actorID, subjectType, subjectID); err != nil {
		return "", err
	}
	res, err := s.relations.Toggle(ctx, domain.NewRelation(domain.RelationLike, actorID, subjectType, subjectID))
	if err != nil {
		return "", err
	}
	metrics.RelationToggles.WithLabelValues(string(domain.RelationLike), string(res)).Inc()
	return res, nil
}

// assertExists validates the id and confirms the subject exists. Hidden
// videos can only be liked by their owner.
func (s *service) assertExists(ctx context.Context, actorID string, subjectType domain.SubjectType, subjectID string) error {
	if err := id.Check(string(subjectType), subjectID); err != nil {
		return err
	}
	var err error
	switch subjectType {
	case domain.SubjectVideo:
		var v *domain.Video
		if v, err = s.videos.Get(ctx, subjectID); err == nil {
			err = domain.AssertVisible(v, actorID)
		}
	case domain.SubjectTweet:
		_, err = s.tweets.Get(ctx, subjectID)
	case domain.SubjectComment:
		_, err = s.comments.Get(ctx, subjectID)
	default:
		return fmt.Errorf("cannot like a %q: %w", subjectType, domain.ErrBadRequest)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s does not exist: %w", subjectType, domain.ErrNotFound)
	}
	return err
}

func (s *service) LikedVideos(ctx context.Context, actorID string, p listing.Params) (*listing.Page[domain.Video], error) {
	q := listing.Query[domain.Video]{
		Resource: "liked_videos",
		Fetch: func(ctx context.Context) ([]domain.Video, error) {
			ids, err := s.likedIDs(ctx, actorID, domain.SubjectVideo)
			if err != nil || len(ids) == 0 {
				return nil, err
			}
			videos, err := s.videos.BatchGet(ctx, ids)
			if err != nil {
				return nil, err
			}
			visible := make([]domain.Video, 0, len(videos))
			for _, v := range videos {
				if v.IsPublished || v.OwnerID == actorID {
					visible = append(visible, v)
				}
			}
			return visible, nil
		},
		OwnerOf: func(v domain.Video) string { return v.OwnerID },
		Attach:  func(v *domain.Video, o domain.Owner) { v.Owner = &o },
		Text: func(v domain.Video) []string {
			fields := []string{v.Title, v.Description}
			if v.Owner != nil {
				fields = append(fields, v.Owner.Username, v.Owner.FullName)
			}
			return fields
		},
		SortKeys: video.SortKeys,
	}
	return listing.Run(ctx, q, p, s.owners)
}

func (s *service) LikedTweets(ctx context.Context, actorID string, p listing.Params) (*listing.Page[domain.Tweet], error) {
	q := listing.Query[domain.Tweet]{
		Resource: "liked_tweets",
		Fetch: func(ctx context.Context) ([]domain.Tweet, error) {
			ids, err := s.likedIDs(ctx, actorID, domain.SubjectTweet)
			if err != nil || len(ids) == 0 {
				return nil, err
			}
			return s.tweets.BatchGet(ctx, ids)
		},
		OwnerOf:  func(t domain.Tweet) string { return t.OwnerID },
		Attach:   func(t *domain.Tweet, o domain.Owner) { t.Owner = &o },
		Text:     tweet.TextFields,
		SortKeys: tweet.SortKeys,
	}
	return listing.Run(ctx, q, p, s.owners)
}

func (s *service) likedIDs(ctx context.Context, actorID string, subjectType domain.SubjectType) ([]string, error) {
	rels, err := s.relations.ListByActor(ctx, actorID, domain.SubjectPrefix(domain.RelationLike, subjectType))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rels))
	for _, r := range rels {
		ids = append(ids, r.SubjectID)
	}
	return ids, nil
}
