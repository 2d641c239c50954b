package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/videotube-api/internal/application/media"
	"github.com/videotube-api/internal/application/tweet"
	"github.com/videotube-api/internal/domain"
	"go.uber.org/zap"
)

type TweetHandler struct {
	base
	svc   tweet.Service
	media media.Service
}

func NewTweetHandler(svc tweet.Service, m media.Service, pager Pager, log *zap.Logger) *TweetHandler {
	return &TweetHandler{base: newBase(log, pager), svc: svc, media: m}
}

// Create takes content plus up to tweet.MaxImages files under "images".
// A JSON body is accepted for text-only tweets.
func (h *TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.CreateTweetRequest
	st := newStager(h.media)
	defer st.cleanup(r)
	if isMultipart(r) {
		if err := parseMultipart(r); err != nil {
			h.fail(w, r, err)
			return
		}
		if r.MultipartForm != nil && len(r.MultipartForm.File["images"]) > tweet.MaxImages {
			h.badRequest(w, "too many images")
			return
		}
		req.Content = r.FormValue("content")
		var err error
		if req.ImagePaths, err = st.all(r, "images"); err != nil {
			h.fail(w, r, err)
			return
		}
	} else if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	t, err := h.svc.Create(r.Context(), uid, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t, "tweet created")
}

func (h *TweetHandler) Find(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Find(r.Context(), h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "tweets fetched")
}

func (h *TweetHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ByUser(r.Context(), chi.URLParam(r, "username"), h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "tweets fetched")
}

func (h *TweetHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), uid, chi.URLParam(r, "tweetId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t, "tweet fetched")
}

func (h *TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.UpdateTweetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	t, err := h.svc.Update(r.Context(), uid, chi.URLParam(r, "tweetId"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t, "tweet updated")
}

func (h *TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), uid, chi.URLParam(r, "tweetId")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "tweet deleted")
}
