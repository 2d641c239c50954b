package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/domain"
)

type mockLikes struct{ mock.Mock }

func (m *mockLikes) Toggle(ctx context.Context, actorID string, st domain.SubjectType, id string) (domain.ToggleResult, error) {
	args := m.Called(ctx, actorID, st, id)
	return args.Get(0).(domain.ToggleResult), args.Error(1)
}

func (m *mockLikes) LikedVideos(ctx context.Context, actorID string, p listing.Params) (*listing.Page[domain.Video], error) {
	args := m.Called(ctx, actorID, p)
	if pg, _ := args.Get(0).(*listing.Page[domain.Video]); pg != nil {
		return pg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLikes) LikedTweets(ctx context.Context, actorID string, p listing.Params) (*listing.Page[domain.Tweet], error) {
	args := m.Called(ctx, actorID, p)
	if pg, _ := args.Get(0).(*listing.Page[domain.Tweet]); pg != nil {
		return pg, args.Error(1)
	}
	return nil, args.Error(1)
}

func likeRouter(h *LikeHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/likes/toggle/{subjectType}/{subjectId}", h.Toggle)
	r.Get("/likes/videos", h.Videos)
	return r
}

func TestLikeToggle_RoutesSubjectType(t *testing.T) {
	svc := &mockLikes{}
	svc.On("Toggle", mock.Anything, "u1", domain.SubjectComment, "c1").Return(domain.ToggleDeleted, nil)

	rec := httptest.NewRecorder()
	likeRouter(NewLikeHandler(svc, Pager{}, nil)).
		ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/likes/toggle/comment/c1", nil), "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "comment unliked", env.Message)
	data := env.Data.(map[string]any)
	assert.Equal(t, "deleted", data["result"])
	assert.Equal(t, false, data["active"])
}

func TestLikeToggle_UnsupportedType(t *testing.T) {
	svc := &mockLikes{}
	svc.On("Toggle", mock.Anything, "u1", domain.SubjectChannel, "x").
		Return(domain.ToggleResult(""), errWrap("cannot like a channel", domain.ErrBadRequest))

	rec := httptest.NewRecorder()
	likeRouter(NewLikeHandler(svc, Pager{}, nil)).
		ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/likes/toggle/channel/x", nil), "u1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cannot like a channel", decodeEnvelope(t, rec).Message)
}

func TestLikedVideos_PassesParams(t *testing.T) {
	svc := &mockLikes{}
	svc.On("LikedVideos", mock.Anything, "u1", mock.MatchedBy(func(p listing.Params) bool {
		return p.Page == 3 && p.Limit == 5
	})).Return(&listing.Page[domain.Video]{Items: []domain.Video{}, CurrentPage: 3, Limit: 5}, nil)

	rec := httptest.NewRecorder()
	likeRouter(NewLikeHandler(svc, Pager{DefaultLimit: 10, MaxLimit: 50}, nil)).
		ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/likes/videos?page=3&limit=5", nil), "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}
