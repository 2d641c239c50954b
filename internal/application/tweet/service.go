package tweet

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
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxImages caps the attachments on a single tweet.
const MaxImages = 10

type Service interface {
	Create(ctx context.Context, ownerID string, req domain.CreateTweetRequest) (*domain.Tweet, error)
	Get(ctx context.Context, actorID, tweetID string) (*domain.TweetDetail, error)
	Update(ctx context.Context, actorID, tweetID string, req domain.UpdateTweetRequest) (*domain.Tweet, error)
	Delete(ctx context.Context, actorID, tweetID string) error
	Find(ctx context.Context, p listing.Params) (*listing.Page[domain.Tweet], error)
	ByUser(ctx context.Context, username string, p listing.Params) (*listing.Page[domain.Tweet], error)
}

type tweetStore interface {
	Put(ctx context.Context, t *domain.Tweet) error
	Get(ctx context.Context, tweetID string) (*domain.Tweet, error)
	Update(ctx context.Context, tweetID string, updates map[string]interface{}) (*domain.Tweet, error)
	Delete(ctx context.Context, tweetID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Tweet, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	ListAll(ctx context.Context) ([]domain.Tweet, error)
	CountAll(ctx context.Context) (int, error)
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type commentStore interface {
	CountByParent(ctx context.Context, parentKey string) (int, error)
}

type relationStore interface {
	Exists(ctx context.Context, actorID, subjectKey string) (bool, error)
	CountBySubject(ctx context.Context, subjectKey string) (int, error)
}

type purger interface {
	Purge(ctx context.Context, subjectType domain.SubjectType, subjectID string) error
}

type mediaUploader interface {
	UploadImage(ctx context.Context, localPath string) (string, error)
	Discard(ctx context.Context, urls ...string)
}

type ServiceDeps struct {
	TweetRepo    tweetStore
	UserRepo     userStore
	CommentRepo  commentStore
	RelationRepo relationStore
	Purger       purger
	Owners       listing.OwnerLoader
	Media        mediaUploader
	Clock        clockwork.Clock
	Logger       *zap.Logger
}

type service struct {
	tweets    tweetStore
	users     userStore
	comments  commentStore
	relations relationStore
	purger    purger
	owners    listing.OwnerLoader
	media     mediaUploader
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		tweets:    deps.TweetRepo,
		users:     deps.UserRepo,
		comments:  deps.CommentRepo,
		relations: deps.RelationRepo,
		purger:    deps.Purger,
		owners:    deps.Owners,
		media:     deps.Media,
		clock:     deps.Clock,
		log:       deps.Logger,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) Create(ctx context.Context, ownerID string, req domain.CreateTweetRequest) (*domain.Tweet, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.ImagePaths) == 0 {
		return nil, fmt.Errorf("tweet needs content or images: %w", domain.ErrBadRequest)
	}
	if len(req.ImagePaths) > MaxImages {
		return nil, fmt.Errorf("at most %d images per tweet: %w", MaxImages, domain.ErrBadRequest)
	}

	images, err := s.uploadAll(ctx, req.ImagePaths)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	t := &domain.Tweet{
		TweetID:   id.New(),
		OwnerID:   ownerID,
		Content:   content,
		Images:    images,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tweets.Put(ctx, t); err != nil {
		s.media.Discard(ctx, images...)
		return nil, err
	}
	return t, nil
}

// uploadAll uploads images concurrently, keeping input order. On any failure
// the images that did upload are discarded.
func (s *service) uploadAll(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	urls := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			url, err := s.media.UploadImage(gctx, path)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var done []string
		for _, u := range urls {
			if u != "" {
				done = append(done, u)
			}
		}
		s.media.Discard(ctx, done...)
		return nil, err
	}
	return urls, nil
}

func (s *service) Get(ctx context.Context, actorID, tweetID string) (*domain.TweetDetail, error) {
	t, err := s.load(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	detail := &domain.TweetDetail{Tweet: *t}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		owners, err := s.owners.BatchGetOwners(gctx, []string{t.OwnerID})
		if err != nil {
			return err
		}
		if o, ok := owners[t.OwnerID]; ok {
			detail.Owner = &o
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.relations.CountBySubject(gctx, domain.SubjectKey(domain.RelationLike, domain.SubjectTweet, tweetID))
		detail.LikesCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.comments.CountByParent(gctx, domain.ContentKey(domain.SubjectTweet, tweetID))
		detail.CommentsCount = n
		return err
	})
	if actorID != "" {
		g.Go(func() error {
			ok, err := s.relations.Exists(gctx, actorID, domain.SubjectKey(domain.RelationLike, domain.SubjectTweet, tweetID))
			detail.IsLiked = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *service) Update(ctx context.Context, actorID, tweetID string, req domain.UpdateTweetRequest) (*domain.Tweet, error) {
	if _, err := s.loadOwned(ctx, actorID, tweetID); err != nil {
		return nil, err
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	return s.tweets.Update(ctx, tweetID, map[string]interface{}{
		"content":    req.Content,
		"updated_at": s.clock.Now().UTC(),
	})
}

// Delete removes the tweet, then everything that refers to it, then its images.
func (s *service) Delete(ctx context.Context, actorID, tweetID string) error {
	t, err := s.loadOwned(ctx, actorID, tweetID)
	if err != nil {
		return err
	}
	if err := s.tweets.Delete(ctx, tweetID); err != nil {
		return err
	}
	err = s.purger.Purge(ctx, domain.SubjectTweet, tweetID)
	s.media.Discard(ctx, t.Images...)
	if err != nil {
		return fmt.Errorf("tweet deleted, cleanup incomplete: %w", err)
	}
	s.log.Info("tweet deleted", zap.String("tweet_id", tweetID), zap.String("owner_id", actorID))
	return nil
}

func (s *service) Find(ctx context.Context, p listing.Params) (*listing.Page[domain.Tweet], error) {
	q := s.query()
	q.Fetch = s.tweets.ListAll
	q.Count = s.tweets.CountAll
	return listing.Run(ctx, q, p, s.owners)
}

func (s *service) ByUser(ctx context.Context, username string, p listing.Params) (*listing.Page[domain.Tweet], error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, fmt.Errorf("username is missing: %w", domain.ErrBadRequest)
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	q := s.query()
	q.Fetch = func(ctx context.Context) ([]domain.Tweet, error) { return s.tweets.ListByOwner(ctx, u.UserID) }
	q.Count = func(ctx context.Context) (int, error) { return s.tweets.CountByOwner(ctx, u.UserID) }
	return listing.Run(ctx, q, p, s.owners)
}

func (s *service) query() listing.Query[domain.Tweet] {
	return listing.Query[domain.Tweet]{
		Resource: "tweets",
		OwnerOf:  func(t domain.Tweet) string { return t.OwnerID },
		Attach:   func(t *domain.Tweet, o domain.Owner) { t.Owner = &o },
		Text:     TextFields,
		SortKeys: SortKeys,
	}
}

// TextFields are matched by a free-text tweet query.
func TextFields(t domain.Tweet) []string {
	fields := []string{t.Content}
	if t.Owner != nil {
		fields = append(fields, t.Owner.Username, t.Owner.FullName)
	}
	return fields
}

var SortKeys = map[string]func(a, b domain.Tweet) int{
	"createdAt": listing.ByTime(func(t domain.Tweet) time.Time { return t.CreatedAt }),
	"updatedAt": listing.ByTime(func(t domain.Tweet) time.Time { return t.UpdatedAt }),
	"content":   listing.ByString(func(t domain.Tweet) string { return t.Content }),
}

func (s *service) load(ctx context.Context, tweetID string) (*domain.Tweet, error) {
	if err := id.Check("tweet", tweetID); err != nil {
		return nil, err
	}
	t, err := s.tweets.Get(ctx, tweetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("tweet does not exist: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (s *service) loadOwned(ctx context.Context, actorID, tweetID string) (*domain.Tweet, error) {
	t, err := s.load(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if err := domain.AssertOwner(t, actorID); err != nil {
		return nil, err
	}
	return t, nil
}
