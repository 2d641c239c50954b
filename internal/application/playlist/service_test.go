package playlist

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/id"
)

// --- fakes & mocks ---

type memPlaylists struct {
	mu   sync.Mutex
	rows map[string]domain.Playlist
}

func newMemPlaylists() *memPlaylists { return &memPlaylists{rows: map[string]domain.Playlist{}} }

func (m *memPlaylists) Put(_ context.Context, p *domain.Playlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.PlaylistID] = *p
	return nil
}
func (m *memPlaylists) Get(_ context.Context, playlistID string) (*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist not found: %w", domain.ErrNotFound)
	}
	p.Videos = slices.Clone(p.Videos)
	return &p, nil
}
func (m *memPlaylists) Update(_ context.Context, playlistID string, updates map[string]interface{}) (*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.rows[playlistID]
	if v, ok := updates["name"].(string); ok {
		p.Name = v
	}
	if v, ok := updates["is_public"].(bool); ok {
		p.IsPublic = v
	}
	m.rows[playlistID] = p
	return &p, nil
}
func (m *memPlaylists) Delete(_ context.Context, playlistID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, playlistID)
	return nil
}
func (m *memPlaylists) ListByOwner(_ context.Context, ownerID string) ([]domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Playlist
	for _, p := range m.rows {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (m *memPlaylists) AddVideo(_ context.Context, playlistID, videoID string) (*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.rows[playlistID]
	p.Videos = append(slices.Clone(p.Videos), videoID)
	m.rows[playlistID] = p
	return &p, nil
}
func (m *memPlaylists) RemoveVideo(_ context.Context, playlistID, videoID string) (*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.rows[playlistID]
	p.Videos = slices.DeleteFunc(slices.Clone(p.Videos), func(v string) bool { return v == videoID })
	m.rows[playlistID] = p
	return &p, nil
}

type mockVideoStore struct{ mock.Mock }

func (m *mockVideoStore) Get(ctx context.Context, videoID string) (*domain.Video, error) {
	args := m.Called(ctx, videoID)
	if v, _ := args.Get(0).(*domain.Video); v != nil {
		return v, args.Error(1)
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

const (
	alice = "01HZX5C9Q7J8K2M3N4P5R6S7T8"
	bob   = "01HZX5C9Q7J8K2M3N4P5R6S7T9"
)

func newFixture() (*memPlaylists, *mockVideoStore, Service) {
	store := newMemPlaylists()
	videos := new(mockVideoStore)
	svc := NewService(ServiceDeps{
		PlaylistRepo: store,
		VideoRepo:    videos,
		Owners:       staticOwners{alice: {UserID: alice, Username: "alice"}},
		Clock:        clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	return store, videos, svc
}

func create(t *testing.T, svc Service, owner string, public bool) *domain.Playlist {
	t.Helper()
	p, err := svc.Create(context.Background(), owner, domain.CreatePlaylistRequest{Name: "mix", IsPublic: &public})
	require.NoError(t, err)
	return p
}

// --- tests ---

func TestCreate_DefaultsToPublic(t *testing.T) {
	_, _, svc := newFixture()
	p, err := svc.Create(context.Background(), alice, domain.CreatePlaylistRequest{Name: " mix "})
	require.NoError(t, err)
	assert.True(t, p.IsPublic)
	assert.Equal(t, "mix", p.Name)

	_, err = svc.Create(context.Background(), alice, domain.CreatePlaylistRequest{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestGet_PrivateHiddenFromOthers(t *testing.T) {
	_, _, svc := newFixture()
	p := create(t, svc, alice, false)

	_, err := svc.Get(context.Background(), bob, p.PlaylistID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := svc.Get(context.Background(), alice, p.PlaylistID)
	require.NoError(t, err)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "alice", got.Owner.Username)
}

func TestListByUser_Visibility(t *testing.T) {
	_, _, svc := newFixture()
	create(t, svc, alice, true)
	create(t, svc, alice, false)

	own, err := svc.ListByUser(context.Background(), alice, alice)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	others, err := svc.ListByUser(context.Background(), bob, alice)
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestAddVideo_CheckOrder(t *testing.T) {
	_, videos, svc := newFixture()
	p := create(t, svc, alice, true)
	vid, missingVid := id.New(), id.New()
	videos.On("Get", mock.Anything, vid).Return(&domain.Video{VideoID: vid}, nil)
	videos.On("Get", mock.Anything, missingVid).Return(nil, fmt.Errorf("video not found: %w", domain.ErrNotFound))

	_, err := svc.AddVideo(context.Background(), alice, id.New(), vid)
	assert.ErrorIs(t, err, domain.ErrNotFound, "missing playlist")

	_, err = svc.AddVideo(context.Background(), bob, p.PlaylistID, vid)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.AddVideo(context.Background(), alice, p.PlaylistID, missingVid)
	assert.ErrorIs(t, err, domain.ErrNotFound, "missing video")

	_, err = svc.AddVideo(context.Background(), alice, p.PlaylistID, "bogus")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestAddRemoveVideo(t *testing.T) {
	_, videos, svc := newFixture()
	p := create(t, svc, alice, true)
	vid := id.New()
	videos.On("Get", mock.Anything, vid).Return(&domain.Video{VideoID: vid}, nil)

	got, err := svc.AddVideo(context.Background(), alice, p.PlaylistID, vid)
	require.NoError(t, err)
	assert.Equal(t, []string{vid}, got.Videos)

	_, err = svc.AddVideo(context.Background(), alice, p.PlaylistID, vid)
	assert.ErrorIs(t, err, domain.ErrBadRequest, "duplicate add")

	got, err = svc.RemoveVideo(context.Background(), alice, p.PlaylistID, vid)
	require.NoError(t, err)
	assert.Empty(t, got.Videos)

	_, err = svc.RemoveVideo(context.Background(), alice, p.PlaylistID, vid)
	assert.ErrorIs(t, err, domain.ErrBadRequest, "not a member")
}

func TestUpdate_AndDelete(t *testing.T) {
	store, _, svc := newFixture()
	p := create(t, svc, alice, true)
	private := false

	got, err := svc.Update(context.Background(), alice, p.PlaylistID, domain.UpdatePlaylistRequest{IsPublic: &private})
	require.NoError(t, err)
	assert.False(t, got.IsPublic)

	_, err = svc.Update(context.Background(), alice, p.PlaylistID, domain.UpdatePlaylistRequest{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	assert.ErrorIs(t, svc.Delete(context.Background(), bob, p.PlaylistID), domain.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), alice, p.PlaylistID))
	_, err = store.Get(context.Background(), p.PlaylistID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
