package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/videotube-api/internal/application/like"
	"github.com/videotube-api/internal/application/report"
	"github.com/videotube-api/internal/application/savedtweet"
	"github.com/videotube-api/internal/application/subscription"
	"github.com/videotube-api/internal/domain"
	"go.uber.org/zap"
)

// ToggleEnvelope reports which way a toggle went.
type ToggleEnvelope struct {
	Result domain.ToggleResult `json:"result"`
	Active bool                `json:"active"`
}

func toggled(res domain.ToggleResult) ToggleEnvelope {
	return ToggleEnvelope{Result: res, Active: res == domain.ToggleCreated}
}

type LikeHandler struct {
	base
	svc like.Service
}

func NewLikeHandler(svc like.Service, pager Pager, log *zap.Logger) *LikeHandler {
	return &LikeHandler{base: newBase(log, pager), svc: svc}
}

// Toggle serves /likes/toggle/{subjectType}/{subjectId}.
func (h *LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	st := domain.SubjectType(chi.URLParam(r, "subjectType"))
	res, err := h.svc.Toggle(r.Context(), uid, st, chi.URLParam(r, "subjectId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := string(st) + " liked"
	if res == domain.ToggleDeleted {
		msg = string(st) + " unliked"
	}
	writeJSON(w, http.StatusOK, toggled(res), msg)
}

func (h *LikeHandler) Videos(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	page, err := h.svc.LikedVideos(r.Context(), uid, h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "liked videos fetched")
}

func (h *LikeHandler) Tweets(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	page, err := h.svc.LikedTweets(r.Context(), uid, h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "liked tweets fetched")
}

type SubscriptionHandler struct {
	base
	svc subscription.Service
}

func NewSubscriptionHandler(svc subscription.Service, pager Pager, log *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{base: newBase(log, pager), svc: svc}
}

func (h *SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Toggle(r.Context(), uid, chi.URLParam(r, "channelId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "subscribed"
	if res == domain.ToggleDeleted {
		msg = "unsubscribed"
	}
	writeJSON(w, http.StatusOK, toggled(res), msg)
}

func (h *SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Subscribers(r.Context(), chi.URLParam(r, "channelId"), h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "subscribers fetched")
}

func (h *SubscriptionHandler) Channels(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Channels(r.Context(), chi.URLParam(r, "subscriberId"), h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "subscribed channels fetched")
}

type SavedTweetHandler struct {
	base
	svc savedtweet.Service
}

func NewSavedTweetHandler(svc savedtweet.Service, pager Pager, log *zap.Logger) *SavedTweetHandler {
	return &SavedTweetHandler{base: newBase(log, pager), svc: svc}
}

func (h *SavedTweetHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Toggle(r.Context(), uid, chi.URLParam(r, "tweetId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "tweet saved"
	if res == domain.ToggleDeleted {
		msg = "tweet unsaved"
	}
	writeJSON(w, http.StatusOK, toggled(res), msg)
}

func (h *SavedTweetHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	page, err := h.svc.List(r.Context(), uid, h.params(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "saved tweets fetched")
}

type ReportHandler struct {
	base
	svc report.Service
}

func NewReportHandler(svc report.Service, log *zap.Logger) *ReportHandler {
	return &ReportHandler{base: newBase(log, Pager{}), svc: svc}
}

func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	rep, err := h.svc.Report(r.Context(), uid,
		domain.SubjectType(chi.URLParam(r, "subjectType")), chi.URLParam(r, "subjectId"), req.Issue)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep, "report submitted")
}
