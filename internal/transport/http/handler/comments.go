package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/videotube-api/internal/application/comment"
	"github.com/videotube-api/internal/domain"
	"go.uber.org/zap"
)

type CommentHandler struct {
	base
	svc comment.Service
}

func NewCommentHandler(svc comment.Service, pager Pager, log *zap.Logger) *CommentHandler {
	return &CommentHandler{base: newBase(log, pager), svc: svc}
}

func (h *CommentHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	page, err := h.svc.ListForVideo(r.Context(), uid, chi.URLParam(r, "videoId"), h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "comments fetched")
}

func (h *CommentHandler) ListForTweet(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListForTweet(r.Context(), chi.URLParam(r, "tweetId"), h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "comments fetched")
}

func (h *CommentHandler) AddToVideo(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, func(uid string, req domain.CommentRequest) (*domain.Comment, error) {
		return h.svc.AddToVideo(r.Context(), uid, chi.URLParam(r, "videoId"), req)
	})
}

func (h *CommentHandler) AddToTweet(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, func(uid string, req domain.CommentRequest) (*domain.Comment, error) {
		return h.svc.AddToTweet(r.Context(), uid, chi.URLParam(r, "tweetId"), req)
	})
}

func (h *CommentHandler) add(w http.ResponseWriter, r *http.Request, create func(string, domain.CommentRequest) (*domain.Comment, error)) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	c, err := create(uid, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c, "comment added")
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	c, err := h.svc.Update(r.Context(), uid, chi.URLParam(r, "commentId"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c, "comment updated")
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), uid, chi.URLParam(r, "commentId")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "comment deleted")
}
