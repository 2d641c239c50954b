package like

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/id"
)

// --- fakes & mocks ---

type memRelations struct {
	mu   sync.Mutex
	rows map[string]domain.Relation
}

func newMemRelations() *memRelations { return &memRelations{rows: map[string]domain.Relation{}} }

func (m *memRelations) Toggle(_ context.Context, rel domain.Relation) (domain.ToggleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rel.ActorID + "|" + rel.SubjectKey
	if _, ok := m.rows[k]; ok {
		delete(m.rows, k)
		return domain.ToggleDeleted, nil
	}
	m.rows[k] = rel
	return domain.ToggleCreated, nil
}
func (m *memRelations) ListByActor(_ context.Context, actorID, prefix string) ([]domain.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Relation
	for _, r := range m.rows {
		if r.ActorID == actorID && strings.HasPrefix(r.SubjectKey, prefix) {
			out = append(out, r)
		}
	}
	return out, nil
}
func (m *memRelations) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type mockVideoStore struct{ mock.Mock }

func (m *mockVideoStore) Get(ctx context.Context, videoID string) (*domain.Video, error) {
	args := m.Called(ctx, videoID)
	if v, _ := args.Get(0).(*domain.Video); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVideoStore) BatchGet(ctx context.Context, ids []string) ([]domain.Video, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Video), args.Error(1)
}

type mockTweetStore struct{ mock.Mock }

func (m *mockTweetStore) Get(ctx context.Context, tweetID string) (*domain.Tweet, error) {
	args := m.Called(ctx, tweetID)
	if t, _ := args.Get(0).(*domain.Tweet); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTweetStore) BatchGet(ctx context.Context, ids []string) ([]domain.Tweet, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Tweet), args.Error(1)
}

type mockCommentStore struct{ mock.Mock }

func (m *mockCommentStore) Get(ctx context.Context, commentID string) (*domain.Comment, error) {
	args := m.Called(ctx, commentID)
	if c, _ := args.Get(0).(*domain.Comment); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type staticOwners map[string]domain.Owner

func (o staticOwners) BatchGetOwners(_ context.Context, ids []string) (map[string]domain.Owner, error) {
	out := map[string]domain.Owner{}
	for _, i := range ids {
		if p, ok := o[i]; ok {
			out[i] = p
		}
	}
	return out, nil
}

type fixture struct {
	relations *memRelations
	videos    *mockVideoStore
	tweets    *mockTweetStore
	comments  *mockCommentStore
	svc       Service
}

func newFixture() *fixture {
	f := &fixture{
		relations: newMemRelations(),
		videos:    new(mockVideoStore),
		tweets:    new(mockTweetStore),
		comments:  new(mockCommentStore),
	}
	f.svc = NewService(ServiceDeps{
		RelationRepo: f.relations,
		VideoRepo:    f.videos,
		TweetRepo:    f.tweets,
		CommentRepo:  f.comments,
		Owners:       staticOwners{"alice": {UserID: "alice", Username: "alice"}, "bob": {UserID: "bob", Username: "bob"}},
	})
	return f
}

// --- tests ---

func TestToggle_FlipsMembership(t *testing.T) {
	f := newFixture()
	vid := id.New()
	f.videos.On("Get", mock.Anything, vid).Return(&domain.Video{VideoID: vid, OwnerID: "alice", IsPublished: true}, nil)

	res, err := f.svc.Toggle(context.Background(), "bob", domain.SubjectVideo, vid)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleCreated, res)
	assert.Equal(t, 1, f.relations.count())

	res, err = f.svc.Toggle(context.Background(), "bob", domain.SubjectVideo, vid)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleDeleted, res)
	assert.Equal(t, 0, f.relations.count())
}

func TestToggle_InvalidID(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Toggle(context.Background(), "bob", domain.SubjectTweet, "xyz")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Equal(t, 0, f.relations.count())
}

func TestToggle_MissingSubject(t *testing.T) {
	f := newFixture()
	cid := id.New()
	f.comments.On("Get", mock.Anything, cid).Return(nil, fmt.Errorf("comment not found: %w", domain.ErrNotFound))

	_, err := f.svc.Toggle(context.Background(), "bob", domain.SubjectComment, cid)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, f.relations.count())
}

func TestToggle_UnpublishedVideo(t *testing.T) {
	f := newFixture()
	vid := id.New()
	f.videos.On("Get", mock.Anything, vid).Return(&domain.Video{VideoID: vid, OwnerID: "alice"}, nil)

	_, err := f.svc.Toggle(context.Background(), "bob", domain.SubjectVideo, vid)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestToggle_UnsupportedSubject(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Toggle(context.Background(), "bob", domain.SubjectChannel, id.New())
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestLikedVideos_SkipsHiddenVideos(t *testing.T) {
	f := newFixture()
	pub, hidden := id.New(), id.New()
	f.videos.On("Get", mock.Anything, pub).Return(&domain.Video{VideoID: pub, IsPublished: true}, nil)
	_, err := f.svc.Toggle(context.Background(), "bob", domain.SubjectVideo, pub)
	require.NoError(t, err)
	// a like recorded before the owner unpublished the video
	f.relations.rows["bob|like#video#"+hidden] = domain.NewRelation(domain.RelationLike, "bob", domain.SubjectVideo, hidden)

	f.videos.On("BatchGet", mock.Anything, mock.Anything).Return([]domain.Video{
		{VideoID: pub, OwnerID: "alice", IsPublished: true},
		{VideoID: hidden, OwnerID: "alice", IsPublished: false},
	}, nil)

	page, err := f.svc.LikedVideos(context.Background(), "bob", listing.Params{Page: 1, Limit: 10, SortBy: "createdAt"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, pub, page.Items[0].VideoID)
	assert.Equal(t, "alice", page.Items[0].Owner.Username)
}

func TestLikedTweets_Empty(t *testing.T) {
	f := newFixture()

	page, err := f.svc.LikedTweets(context.Background(), "bob", listing.Params{Page: 1, Limit: 10, SortBy: "createdAt"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalPages)
	f.tweets.AssertNotCalled(t, "BatchGet", mock.Anything, mock.Anything)
}
