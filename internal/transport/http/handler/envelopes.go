package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// Envelope wraps every response, successful or not.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// statusByError maps domain sentinels to HTTP status codes. Order matters
// only for errors wrapping more than one sentinel.
var statusByError = []struct {
	err    error
	status int
}{
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrRateLimited, http.StatusTooManyRequests},
}

func statusFor(err error) (int, error) {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status, m.err
		}
	}
	return http.StatusInternalServerError, nil
}

// base carries what every handler needs to respond.
type base struct {
	log   *zap.Logger
	pager Pager
}

// Pager holds the listing defaults applied to page/limit query params.
type Pager struct {
	DefaultLimit int
	MaxLimit     int
}

func newBase(log *zap.Logger, pager Pager) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{log: log, pager: pager}
}

func (b base) params(r *http.Request) listing.Params {
	return listing.FromQuery(r.URL.Query(), b.pager.DefaultLimit, b.pager.MaxLimit)
}

func writeJSON(w http.ResponseWriter, status int, data any, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		StatusCode: status,
		Data:       data,
		Message:    msg,
		Success:    status < http.StatusBadRequest,
	})
}

// fail maps err to a status and writes the error envelope. Internal errors
// are logged and reported without detail.
func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, sentinel := statusFor(err)
	msg := err.Error()
	if sentinel != nil {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	} else {
		b.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "something went wrong"
	}
	writeJSON(w, status, nil, msg)
}

func (b base) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, nil, msg)
}

// actor returns the authenticated user id or writes 401.
func (b base) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
	}
	return id, ok
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, nil, "route not found")
}

// MethodNotAllowed answers requests whose path matches but method does not.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, nil, "method not allowed")
}
