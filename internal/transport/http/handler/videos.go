package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/videotube-api/internal/application/media"
	"github.com/videotube-api/internal/application/video"
	"github.com/videotube-api/internal/domain"
	"go.uber.org/zap"
)

type VideoHandler struct {
	base
	svc   video.Service
	media media.Service
}

func NewVideoHandler(svc video.Service, m media.Service, pager Pager, log *zap.Logger) *VideoHandler {
	return &VideoHandler{base: newBase(log, pager), svc: svc, media: m}
}

func (h *VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := parseMultipart(r); err != nil {
		h.fail(w, r, err)
		return
	}
	st := newStager(h.media)
	defer st.cleanup(r)

	req := domain.PublishVideoRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	var err error
	if req.VideoPath, err = st.one(r, "videoFile"); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ThumbnailPath, err = st.one(r, "thumbnail"); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.Publish(r.Context(), uid, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v, "video published")
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	page, err := h.svc.List(r.Context(), uid, r.URL.Query().Get("userId"), h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "videos fetched")
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Get(r.Context(), uid, chi.URLParam(r, "videoId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v, "video fetched")
}

// Update accepts multipart (optional thumbnail) or a JSON body.
func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.UpdateVideoRequest
	st := newStager(h.media)
	defer st.cleanup(r)
	if isMultipart(r) {
		if err := parseMultipart(r); err != nil {
			h.fail(w, r, err)
			return
		}
		req.Title = formPtr(r, "title")
		req.Description = formPtr(r, "description")
		var err error
		if req.ThumbnailPath, err = st.one(r, "thumbnail"); err != nil {
			h.fail(w, r, err)
			return
		}
	} else if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	v, err := h.svc.Update(r.Context(), uid, chi.URLParam(r, "videoId"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v, "video updated")
}

func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), uid, chi.URLParam(r, "videoId")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "video deleted")
}

func (h *VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	v, err := h.svc.TogglePublish(r.Context(), uid, chi.URLParam(r, "videoId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v, "publish status toggled")
}
