package tweet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/id"
)

// --- fakes & mocks ---

type mockTweetStore struct{ mock.Mock }

func (m *mockTweetStore) Put(ctx context.Context, t *domain.Tweet) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockTweetStore) Get(ctx context.Context, tweetID string) (*domain.Tweet, error) {
	args := m.Called(ctx, tweetID)
	if t, _ := args.Get(0).(*domain.Tweet); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTweetStore) Update(ctx context.Context, tweetID string, updates map[string]interface{}) (*domain.Tweet, error) {
	args := m.Called(ctx, tweetID, updates)
	if t, _ := args.Get(0).(*domain.Tweet); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTweetStore) Delete(ctx context.Context, tweetID string) error {
	return m.Called(ctx, tweetID).Error(0)
}
func (m *mockTweetStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Tweet, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.Tweet), args.Error(1)
}
func (m *mockTweetStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}
func (m *mockTweetStore) ListAll(ctx context.Context) ([]domain.Tweet, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Tweet), args.Error(1)
}
func (m *mockTweetStore) CountAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockComments struct{ mock.Mock }

func (m *mockComments) CountByParent(ctx context.Context, parentKey string) (int, error) {
	args := m.Called(ctx, parentKey)
	return args.Int(0), args.Error(1)
}

type mockRelations struct{ mock.Mock }

func (m *mockRelations) Exists(ctx context.Context, actorID, subjectKey string) (bool, error) {
	args := m.Called(ctx, actorID, subjectKey)
	return args.Bool(0), args.Error(1)
}
func (m *mockRelations) CountBySubject(ctx context.Context, subjectKey string) (int, error) {
	args := m.Called(ctx, subjectKey)
	return args.Int(0), args.Error(1)
}

type mockPurger struct{ mock.Mock }

func (m *mockPurger) Purge(ctx context.Context, subjectType domain.SubjectType, subjectID string) error {
	return m.Called(ctx, subjectType, subjectID).Error(0)
}

// fakeMedia uploads "/tmp/x.png" to "https://cdn/x.png" and fails for paths
// containing "bad".
type fakeMedia struct {
	mu        sync.Mutex
	discarded []string
}

func (f *fakeMedia) UploadImage(_ context.Context, path string) (string, error) {
	if strings.Contains(path, "bad") {
		return "", fmt.Errorf("not an image: %w", domain.ErrBadRequest)
	}
	return "https://cdn/" + strings.TrimPrefix(path, "/tmp/"), nil
}
func (f *fakeMedia) Discard(_ context.Context, urls ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, urls...)
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
	tweets    *mockTweetStore
	users     *mockUserStore
	comments  *mockComments
	relations *mockRelations
	purger    *mockPurger
	media     *fakeMedia
	svc       Service
}

func newFixture() *fixture {
	f := &fixture{
		tweets:    new(mockTweetStore),
		users:     new(mockUserStore),
		comments:  new(mockComments),
		relations: new(mockRelations),
		purger:    new(mockPurger),
		media:     &fakeMedia{},
	}
	f.svc = NewService(ServiceDeps{
		TweetRepo:    f.tweets,
		UserRepo:     f.users,
		CommentRepo:  f.comments,
		RelationRepo: f.relations,
		Purger:       f.purger,
		Owners: staticOwners{
			"alice": {UserID: "alice", Username: "alice", FullName: "Alice Liddell"},
			"bob":   {UserID: "bob", Username: "bob", FullName: "Bob Builder"},
		},
		Media: f.media,
		Clock: clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	return f
}

// --- tests ---

func TestCreate_RequiresContentOrImages(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), "alice", domain.CreateTweetRequest{Content: "   "})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_TooManyImages(t *testing.T) {
	f := newFixture()
	paths := make([]string, MaxImages+1)
	for i := range paths {
		paths[i] = fmt.Sprintf("/tmp/%d.png", i)
	}
	_, err := f.svc.Create(context.Background(), "alice", domain.CreateTweetRequest{ImagePaths: paths})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_UploadsImagesInOrder(t *testing.T) {
	f := newFixture()
	f.tweets.On("Put", mock.Anything, mock.AnythingOfType("*domain.Tweet")).Return(nil)

	tw, err := f.svc.Create(context.Background(), "alice", domain.CreateTweetRequest{
		ImagePaths: []string{"/tmp/a.png", "/tmp/b.png", "/tmp/c.png"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a.png", "https://cdn/b.png", "https://cdn/c.png"}, tw.Images)
	assert.Empty(t, tw.Content)
}

func TestCreate_FailedUploadDiscardsTheRest(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "alice", domain.CreateTweetRequest{
		Content:    "hi",
		ImagePaths: []string{"/tmp/a.png", "/tmp/bad.png"},
	})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.tweets.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	assert.NotContains(t, f.media.discarded, "")
}

func TestGet_Detail(t *testing.T) {
	f := newFixture()
	tid := id.New()
	f.tweets.On("Get", mock.Anything, tid).Return(&domain.Tweet{TweetID: tid, OwnerID: "alice", Content: "hello"}, nil)
	f.relations.On("CountBySubject", mock.Anything, "like#tweet#"+tid).Return(4, nil)
	f.comments.On("CountByParent", mock.Anything, "tweet#"+tid).Return(2, nil)
	f.relations.On("Exists", mock.Anything, "bob", "like#tweet#"+tid).Return(true, nil)

	d, err := f.svc.Get(context.Background(), "bob", tid)

	require.NoError(t, err)
	assert.Equal(t, 4, d.LikesCount)
	assert.Equal(t, 2, d.CommentsCount)
	assert.True(t, d.IsLiked)
	require.NotNil(t, d.Owner)
	assert.Equal(t, "alice", d.Owner.Username)
}

func TestGet_Missing(t *testing.T) {
	f := newFixture()
	tid := id.New()
	f.tweets.On("Get", mock.Anything, tid).Return(nil, fmt.Errorf("tweet not found: %w", domain.ErrNotFound))

	_, err := f.svc.Get(context.Background(), "bob", tid)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_ForbiddenForOthers(t *testing.T) {
	f := newFixture()
	tid := id.New()
	f.tweets.On("Get", mock.Anything, tid).Return(&domain.Tweet{TweetID: tid, OwnerID: "alice"}, nil)

	_, err := f.svc.Update(context.Background(), "bob", tid, domain.UpdateTweetRequest{Content: "mine now"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.tweets.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_EmptyContent(t *testing.T) {
	f := newFixture()
	tid := id.New()
	f.tweets.On("Get", mock.Anything, tid).Return(&domain.Tweet{TweetID: tid, OwnerID: "alice"}, nil)

	_, err := f.svc.Update(context.Background(), "alice", tid, domain.UpdateTweetRequest{Content: " "})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestDelete_PurgesAndDiscardsImages(t *testing.T) {
	f := newFixture()
	tid := id.New()
	f.tweets.On("Get", mock.Anything, tid).Return(&domain.Tweet{TweetID: tid, OwnerID: "alice", Images: []string{"https://cdn/a.png"}}, nil)
	f.tweets.On("Delete", mock.Anything, tid).Return(nil)
	f.purger.On("Purge", mock.Anything, domain.SubjectTweet, tid).Return(errors.New("throttled"))

	err := f.svc.Delete(context.Background(), "alice", tid)

	assert.ErrorContains(t, err, "throttled")
	f.purger.AssertExpectations(t)
	assert.Equal(t, []string{"https://cdn/a.png"}, f.media.discarded)
}

func TestDelete_NotOwnerLeavesTweet(t *testing.T) {
	f := newFixture()
	tid := id.New()
	f.tweets.On("Get", mock.Anything, tid).Return(&domain.Tweet{TweetID: tid, OwnerID: "alice"}, nil)

	err := f.svc.Delete(context.Background(), "bob", tid)

	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.tweets.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	f.purger.AssertNotCalled(t, "Purge", mock.Anything, mock.Anything, mock.Anything)
}

func TestFind_FiltersByOwnerName(t *testing.T) {
	f := newFixture()
	f.tweets.On("ListAll", mock.Anything).Return([]domain.Tweet{
		{TweetID: "1", OwnerID: "alice", Content: "morning"},
		{TweetID: "2", OwnerID: "bob", Content: "evening"},
	}, nil)

	page, err := f.svc.Find(context.Background(), listing.Params{Page: 1, Limit: 10, SortBy: "createdAt", Query: "builder"})

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "2", page.Items[0].TweetID)
	f.tweets.AssertNotCalled(t, "CountAll", mock.Anything)
}

func TestByUser_UnknownUsername(t *testing.T) {
	f := newFixture()
	f.users.On("GetByUsername", mock.Anything, "ghost").Return(nil, fmt.Errorf("user not found: %w", domain.ErrNotFound))

	_, err := f.svc.ByUser(context.Background(), "Ghost", listing.Params{Page: 1, Limit: 10, SortBy: "createdAt"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestByUser_ListsOwnerTweets(t *testing.T) {
	f := newFixture()
	f.users.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{UserID: "alice"}, nil)
	f.tweets.On("ListByOwner", mock.Anything, "alice").Return([]domain.Tweet{{TweetID: "1", OwnerID: "alice"}}, nil)
	f.tweets.On("CountByOwner", mock.Anything, "alice").Return(1, nil)

	page, err := f.svc.ByUser(context.Background(), "alice", listing.Params{Page: 1, Limit: 10, SortBy: "createdAt"})

	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
}
