package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/id"
	"github.com/videotube-api/internal/pkg/metrics"
)

// Member is one side of a subscription as shown in a listing.
type Member struct {
	domain.Owner
	SubscribedAt time.Time `json:"subscribedAt"`
}

type Service interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (domain.ToggleResult, error)
	// Subscribers lists the users subscribed to channelID.
	Subscribers(ctx context.Context, channelID string, p listing.Params) (*listing.Page[Member], error)
	// Channels lists the channels subscriberID is subscribed to.
	Channels(ctx context.Context, subscriberID string, p listing.Params) (*listing.Page[Member], error)
}

type relationStore interface {
	Toggle(ctx context.Context, rel domain.Relation) (domain.ToggleResult, error)
	ListByActor(ctx context.Context, actorID, prefix string) ([]domain.Relation, error)
	CountByActor(ctx context.Context, actorID, prefix string) (int, error)
	ListBySubject(ctx context.Context, subjectKey string) ([]domain.Relation, error)
	CountBySubject(ctx context.Context, subjectKey string) (int, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	BatchGetOwners(ctx context.Context, ids []string) (map[string]domain.Owner, error)
}

type ServiceDeps struct {
	RelationRepo relationStore
	UserRepo     userStore
}

type service struct {
	relations relationStore
	users     userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{relations: deps.RelationRepo, users: deps.UserRepo}
}

func (s *service) Toggle(ctx context.Context, subscriberID, channelID string) (domain.ToggleResult, error) {
	if err := id.Check("channel", channelID); err != nil {
		return "", err
	}
	if channelID == subscriberID {
		return "", fmt.Errorf("cannot subscribe to your own channel: %w", domain.ErrBadRequest)
	}
	if err := s.assertUser(ctx, channelID, "channel"); err != nil {
		return "", err
	}
	res, err := s.relations.Toggle(ctx, domain.NewRelation(domain.RelationSubscription, subscriberID, domain.SubjectChannel, channelID))
	if err != nil {
		return "", err
	}
	metrics.RelationToggles.WithLabelValues(string(domain.RelationSubscription), string(res)).Inc()
	return res, nil
}

func (s *service) Subscribers(ctx context.Context, channelID string, p listing.Params) (*listing.Page[Member], error) {
	if err := id.Check("channel", channelID); err != nil {
		return nil, err
	}
	if err := s.assertUser(ctx, channelID, "channel"); err != nil {
		return nil, err
	}
	key := domain.SubjectKey(domain.RelationSubscription, domain.SubjectChannel, channelID)
	q := query(func(ctx context.Context) ([]Member, error) {
		rels, err := s.relations.ListBySubject(ctx, key)
		if err != nil {
			return nil, err
		}
		return s.members(ctx, rels, func(r domain.Relation) string { return r.ActorID })
	})
	q.Count = func(ctx context.Context) (int, error) { return s.relations.CountBySubject(ctx, key) }
	return listing.Run(ctx, q, p, nil)
}

func (s *service) Channels(ctx context.Context, subscriberID string, p listing.Params) (*listing.Page[Member], error) {
	if err := id.Check("subscriber", subscriberID); err != nil {
		return nil, err
	}
	if err := s.assertUser(ctx, subscriberID, "subscriber"); err != nil {
		return nil, err
	}
	prefix := domain.SubjectPrefix(domain.RelationSubscription, domain.SubjectChannel)
	q := query(func(ctx context.Context) ([]Member, error) {
		rels, err := s.relations.ListByActor(ctx, subscriberID, prefix)
		if err != nil {
			return nil, err
		}
		return s.members(ctx, rels, func(r domain.Relation) string { return r.SubjectID })
	})
	q.Count = func(ctx context.Context) (int, error) { return s.relations.CountByActor(ctx, subscriberID, prefix) }
	return listing.Run(ctx, q, p, nil)
}

// members resolves the user on the other side of each relation. Relations
// pointing at deleted users are dropped.
func (s *service) members(ctx context.Context, rels []domain.Relation, other func(domain.Relation) string) ([]Member, error) {
	if len(rels) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(rels))
	for _, r := range rels {
		ids = append(ids, other(r))
	}
	owners, err := s.users.BatchGetOwners(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	out := make([]Member, 0, len(rels))
	for _, r := range rels {
		if o, ok := owners[other(r)]; ok {
			out = append(out, Member{Owner: o, SubscribedAt: r.CreatedAt})
		}
	}
	return out, nil
}

func query(fetch func(ctx context.Context) ([]Member, error)) listing.Query[Member] {
	return listing.Query[Member]{
		Resource: "subscriptions",
		Fetch:    fetch,
		Text:     func(m Member) []string { return []string{m.Username, m.FullName} },
		SortKeys: map[string]func(a, b Member) int{
			"createdAt": listing.ByTime(func(m Member) time.Time { return m.SubscribedAt }),
			"username":  listing.ByString(func(m Member) string { return m.Username }),
			"fullName":  listing.ByString(func(m Member) string { return m.FullName }),
		},
	}
}

func (s *service) assertUser(ctx context.Context, userID, what string) error {
	if _, err := s.users.Get(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s does not exist: %w", what, domain.ErrNotFound)
		}
		return err
	}
	return nil
}
