package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/videotube-api/internal/application/auth"
	"github.com/videotube-api/internal/application/media"
	"github.com/videotube-api/internal/application/session"
	"github.com/videotube-api/internal/application/user"
	"github.com/videotube-api/internal/domain"
	"go.uber.org/zap"
)

// UserHandler serves account, session and credential-flow endpoints.
type UserHandler struct {
	base
	auth    auth.Service
	session session.Service
	users   user.Service
	media   media.Service
	cookies Cookies
}

type UserHandlerDeps struct {
	Auth    auth.Service
	Session session.Service
	Users   user.Service
	Media   media.Service
	Cookies Cookies
	Pager   Pager
	Logger  *zap.Logger
}

func NewUserHandler(deps UserHandlerDeps) *UserHandler {
	return &UserHandler{
		base:    newBase(deps.Logger, deps.Pager),
		auth:    deps.Auth,
		session: deps.Session,
		users:   deps.Users,
		media:   deps.Media,
		cookies: deps.Cookies,
	}
}

// AuthEnvelope is the data returned by login and token refresh.
type AuthEnvelope struct {
	User         *domain.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func (h *UserHandler) setTokens(w http.ResponseWriter, pair *domain.TokenPair) {
	h.cookies.set(w, cookieAccessToken, pair.AccessToken, pair.AccessExpiresAt)
	h.cookies.set(w, cookieRefreshToken, pair.RefreshToken, pair.RefreshExpiresAt)
}

func (h *UserHandler) RegisterEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	ch, err := h.auth.BeginRegistration(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.set(w, cookiePendingEmail, ch.Cookie, ch.ExpiresAt)
	writeJSON(w, http.StatusOK, nil, "verification code sent")
}

func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OTP string `json:"verificationOTP"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	ch, err := h.auth.ConfirmEmail(r.Context(), cookieValue(r, cookiePendingEmail), req.OTP)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.clear(w, cookiePendingEmail)
	h.cookies.set(w, cookieVerifiedEmail, ch.Cookie, ch.ExpiresAt)
	writeJSON(w, http.StatusOK, nil, "email verified")
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(r); err != nil {
		h.fail(w, r, err)
		return
	}
	st := newStager(h.media)
	defer st.cleanup(r)

	req := domain.RegisterRequest{
		FullName: r.FormValue("fullName"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	var err error
	if req.AvatarPath, err = st.one(r, "avatar"); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.CoverPath, err = st.one(r, "coverImage"); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.auth.CompleteRegistration(r.Context(), cookieValue(r, cookieVerifiedEmail), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.clear(w, cookieVerifiedEmail)
	writeJSON(w, http.StatusCreated, u, "user registered successfully")
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	res, err := h.session.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setTokens(w, res.Pair)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		User:         res.User,
		AccessToken:  res.Pair.AccessToken,
		RefreshToken: res.Pair.RefreshToken,
	}, "user logged in successfully")
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.session.Revoke(r.Context(), uid); err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.clear(w, cookieAccessToken, cookieRefreshToken)
	writeJSON(w, http.StatusOK, nil, "user logged out")
}

func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, cookieRefreshToken)
	if token == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeJSON(r, &req)
		token = req.RefreshToken
	}
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		return
	}
	pair, err := h.session.Rotate(r.Context(), token)
	if err != nil {
		h.cookies.clear(w, cookieAccessToken, cookieRefreshToken)
		h.fail(w, r, err)
		return
	}
	h.setTokens(w, pair)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "access token refreshed")
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	if err := h.users.ChangePassword(r.Context(), uid, req); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "password changed successfully")
}

func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	u, err := h.users.GetCurrent(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u, "current user fetched")
}

func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req domain.UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	u, err := h.users.UpdateAccount(r.Context(), uid, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u, "account details updated")
}

func (h *UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.users.UpdateAvatar, "avatar updated")
}

func (h *UserHandler) CoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.users.UpdateCover, "cover image updated")
}

type imageUpdater func(ctx context.Context, userID, localPath string) (*domain.User, error)

func (h *UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, msg string) {
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
	p, err := st.one(r, field)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if p == "" {
		h.badRequest(w, field+" file is missing")
		return
	}
	u, err := update(r.Context(), uid, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u, msg)
}

func (h *UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		h.badRequest(w, "username is missing")
		return
	}
	p, err := h.users.ChannelProfile(r.Context(), uid, username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p, "channel profile fetched")
}

func (h *UserHandler) SendForgotPasswordOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UsernameOrEmail string `json:"usernameOrEmail"`
	}
	if r.Method == http.MethodGet {
		req.UsernameOrEmail = r.URL.Query().Get("usernameOrEmail")
	} else if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	ch, err := h.auth.RequestPasswordReset(r.Context(), req.UsernameOrEmail)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.set(w, cookiePendingEmail, ch.Cookie, ch.ExpiresAt)
	writeJSON(w, http.StatusOK, nil, "password reset code sent")
}

func (h *UserHandler) VerifyForgotPasswordOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OTP string `json:"forgotPasswordOTP"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	ch, err := h.auth.VerifyPasswordResetOTP(r.Context(), cookieValue(r, cookiePendingEmail), req.OTP)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.clear(w, cookiePendingEmail)
	h.cookies.set(w, cookieVerifiedEmail, ch.Cookie, ch.ExpiresAt)
	writeJSON(w, http.StatusOK, nil, "password reset code verified")
}

func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	if err := h.auth.ResetPassword(r.Context(), cookieValue(r, cookieVerifiedEmail), req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.clear(w, cookieVerifiedEmail, cookieAccessToken, cookieRefreshToken)
	writeJSON(w, http.StatusOK, nil, "password reset successfully")
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	if err := h.users.Delete(r.Context(), uid, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	h.cookies.clear(w, cookieAccessToken, cookieRefreshToken)
	writeJSON(w, http.StatusOK, nil, "user deleted successfully")
}
