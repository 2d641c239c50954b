package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/videotube-api/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func errWrap(msg string, sentinel error) error {
	return fmt.Errorf("%s: %w", msg, sentinel)
}

func TestFail_MapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{errWrap("video id is invalid", domain.ErrBadRequest), http.StatusBadRequest, "video id is invalid"},
		{errWrap("unauthorized request", domain.ErrUnauthorized), http.StatusUnauthorized, "unauthorized request"},
		{errWrap("not the owner", domain.ErrForbidden), http.StatusForbidden, "not the owner"},
		{errWrap("video not found", domain.ErrNotFound), http.StatusNotFound, "video not found"},
		{errWrap("username already taken", domain.ErrConflict), http.StatusConflict, "username already taken"},
		{errWrap("too many attempts", domain.ErrRateLimited), http.StatusTooManyRequests, "too many attempts"},
		{domain.ErrNotFound, http.StatusNotFound, "not found"},
	}
	b := newBase(nil, Pager{})
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			rec := httptest.NewRecorder()
			b.fail(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)
			assert.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tc.status, env.StatusCode)
			assert.Equal(t, tc.msg, env.Message)
			assert.False(t, env.Success)
			assert.Nil(t, env.Data)
		})
	}
}

func TestFail_InternalErrorIsLoggedNotLeaked(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	b := newBase(zap.New(core), Pager{})

	rec := httptest.NewRecorder()
	b.fail(rec, httptest.NewRequest(http.MethodGet, "/videos", nil), errors.New("dynamodb: throttled"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "something went wrong", decodeEnvelope(t, rec).Message)
	assert.Equal(t, 1, logs.Len())
}

func TestParams_ClampsLimit(t *testing.T) {
	b := newBase(nil, Pager{DefaultLimit: 10, MaxLimit: 50})
	p := b.params(httptest.NewRequest(http.MethodGet, "/videos?page=2&limit=500&sortBy=views&sortType=asc", nil))
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 50, p.Limit)
}

func TestUnmatchedRoutesUseEnvelope(t *testing.T) {
	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	r.Route("/api/v1/videos", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	cases := []struct {
		method, path string
		status       int
		msg          string
	}{
		{http.MethodGet, "/nope", http.StatusNotFound, "route not found"},
		{http.MethodGet, "/api/v1/videos/x/y", http.StatusNotFound, "route not found"},
		{http.MethodPut, "/api/v1/videos/", http.StatusMethodNotAllowed, "method not allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tc.msg, env.Message)
			assert.False(t, env.Success)
		})
	}
}
