package savedtweet

import (
	"context"
	"errors"
	"fmt"

	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/application/tweet"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/id"
	"github.com/videotube-api/internal/pkg/metrics"
)

// Service keeps a user's saved tweets as one relation row per tweet.
type Service interface {
	Toggle(ctx context.Context, actorID, tweetID string) (domain.ToggleResult, error)
	List(ctx context.Context, actorID string, p listing.Params) (*listing.Page[domain.Tweet], error)
}

type relationStore interface {
	Toggle(ctx context.Context, rel domain.Relation) (domain.ToggleResult, error)
	ListByActor(ctx context.Context, actorID, prefix string) ([]domain.Relation, error)
}

type tweetStore interface {
	Get(ctx context.Context, tweetID string) (*domain.Tweet, error)
	BatchGet(ctx context.Context, ids []string) ([]domain.Tweet, error)
}

type ServiceDeps struct {
	RelationRepo relationStore
	TweetRepo    tweetStore
	Owners       listing.OwnerLoader
}

type service struct {
	relations relationStore
	tweets    tweetStore
	owners    listing.OwnerLoader
}

func NewService(deps ServiceDeps) Service {
	return &service{relations: deps.RelationRepo, tweets: deps.TweetRepo, owners: deps.Owners}
}

func (s *service) Toggle(ctx context.Context, actorID, tweetID string) (domain.ToggleResult, error) {
	if err := id.Check("tweet", tweetID); err != nil {
		return "", err
	}
	if _, err := s.tweets.Get(ctx, tweetID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("tweet does not exist: %w", domain.ErrNotFound)
		}
		return "", err
	}
	res, err := s.relations.Toggle(ctx, domain.NewRelation(domain.RelationSaved, actorID, domain.SubjectTweet, tweetID))
	if err != nil {
		return "", err
	}
	metrics.RelationToggles.WithLabelValues(string(domain.RelationSaved), string(res)).Inc()
	return res, nil
}

func (s *service) List(ctx context.Context, actorID string, p listing.Params) (*listing.Page[domain.Tweet], error) {
	q := listing.Query[domain.Tweet]{
		Resource: "saved_tweets",
		Fetch: func(ctx context.Context) ([]domain.Tweet, error) {
			rels, err := s.relations.ListByActor(ctx, actorID, domain.SubjectPrefix(domain.RelationSaved, domain.SubjectTweet))
			if err != nil || len(rels) == 0 {
				return nil, err
			}
			ids := make([]string, 0, len(rels))
			for _, r := range rels {
				ids = append(ids, r.SubjectID)
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
