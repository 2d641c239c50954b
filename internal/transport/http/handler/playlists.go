package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/videotube-api/internal/application/playlist"
	"github.com/videotube-api/internal/domain"
	"go.uber.org/zap"
)

type PlaylistHandler struct {
	base
	svc playlist.Service
}

func NewPlaylistHandler(svc playlist.Service, log *zap.Logger) *PlaylistHandler {
	return &PlaylistHandler{base: newBase(log, Pager{}), svc: svc}
}

func (h *PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.CreatePlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	p, err := h.svc.Create(r.Context(), uid, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p, "playlist created")
}

func (h *PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), uid, chi.URLParam(r, "playlistId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p, "playlist fetched")
}

func (h *PlaylistHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	ps, err := h.svc.ListByUser(r.Context(), uid, chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps, "playlists fetched")
}

func (h *PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.UpdatePlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	p, err := h.svc.Update(r.Context(), uid, chi.URLParam(r, "playlistId"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p, "playlist updated")
}

func (h *PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), uid, chi.URLParam(r, "playlistId")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "playlist deleted")
}

func (h *PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	p, err := h.svc.AddVideo(r.Context(), uid, chi.URLParam(r, "playlistId"), chi.URLParam(r, "videoId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p, "video added to playlist")
}

func (h *PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	p, err := h.svc.RemoveVideo(r.Context(), uid, chi.URLParam(r, "playlistId"), chi.URLParam(r, "videoId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p, "video removed from playlist")
}
