package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/videotube-api/internal/config"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/infrastructure/sns"
	"github.com/videotube-api/internal/pkg/id"
	"github.com/videotube-api/internal/pkg/metrics"
	"github.com/videotube-api/internal/pkg/otp"
	"github.com/videotube-api/internal/pkg/validate"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Purposes of sealed cookie claims. A claim opened for the wrong step is
// treated the same as a missing one.
const (
	purposeRegisterPending = "register:pending"
	purposeRegisterDone    = "register:verified"
	purposeResetPending    = "reset:pending"
	purposeResetDone       = "reset:verified"
)

const (
	flowRegistration = "registration"
	flowReset        = "password_reset"
)

var errSessionExpired = fmt.Errorf("session expired: %w", domain.ErrBadRequest)

// Challenge is the sealed claim to hand back to the client as a cookie.
type Challenge struct {
	Cookie    string
	ExpiresAt time.Time
}

// claim is the payload sealed inside the flow cookies.
type claim struct {
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	ExpiresAt int64  `json:"exp"`
}

type Service interface {
	BeginRegistration(ctx context.Context, email string) (*Challenge, error)
	ConfirmEmail(ctx context.Context, pendingCookie, code string) (*Challenge, error)
	CompleteRegistration(ctx context.Context, verifiedCookie string, req domain.RegisterRequest) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, usernameOrEmail string) (*Challenge, error)
	VerifyPasswordResetOTP(ctx context.Context, pendingCookie, code string) (*Challenge, error)
	ResetPassword(ctx context.Context, verifiedCookie, newPassword string) error
}

type registrationStore interface {
	Put(ctx context.Context, reg *domain.Registration) error
	Get(ctx context.Context, email string) (*domain.Registration, error)
	Delete(ctx context.Context, email string) error
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error)
}

type sealer interface {
	Seal(v any) (string, error)
	Open(value string, v any) error
}

type mailer interface {
	Send(to, subject, body string)
}

type attemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type imageUploader interface {
	UploadImage(ctx context.Context, localPath string) (string, error)
	Discard(ctx context.Context, urls ...string)
}

type sessionRevoker interface {
	Revoke(ctx context.Context, userID string) error
}

// ServiceDeps bundles all dependencies for the auth service.
type ServiceDeps struct {
	RegistrationRepo registrationStore
	UserRepo         userStore
	Sealer           sealer
	Mailer           mailer
	Limiter          attemptLimiter
	Media            imageUploader
	Sessions         sessionRevoker
	Events           sns.Publisher
	Clock            clockwork.Clock
	Logger           *zap.Logger
	// GenerateOTP defaults to otp.Generate.
	GenerateOTP func() (string, error)

	RegistrationTTL        time.Duration
	PasswordResetOTPTTL    time.Duration
	PendingEmailCookieTTL  time.Duration
	VerifiedEmailCookieTTL time.Duration
}

// TTLsFromConfig copies the flow windows from cfg into deps.
func (d *ServiceDeps) TTLsFromConfig(cfg *config.Config) {
	d.RegistrationTTL = cfg.RegistrationTTL
	d.PasswordResetOTPTTL = cfg.PasswordResetOTPTTL
	d.PendingEmailCookieTTL = cfg.PendingEmailCookieTTL
	d.VerifiedEmailCookieTTL = cfg.VerifiedEmailCookieTTL
}

type service struct {
	ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.GenerateOTP == nil {
		deps.GenerateOTP = otp.Generate
	}
	return &service{ServiceDeps: deps}
}

// BeginRegistration stages a sign-up for email and mails it a code. Any prior
// staged record for the same email is replaced.
func (s *service) BeginRegistration(ctx context.Context, email string) (*Challenge, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, fmt.Errorf("invalid email address format: %w", domain.ErrBadRequest)
	}
	if _, err := s.UserRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("this email is already linked to a user: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	code, err := s.GenerateOTP()
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()
	err = s.RegistrationRepo.Put(ctx, &domain.Registration{
		Email:           email,
		VerificationOTP: code,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.RegistrationTTL).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}
	s.Mailer.Send(email, "Verify your email", verificationMail(code, s.RegistrationTTL))
	metrics.OTPChallenges.WithLabelValues(flowRegistration, "issued").Inc()

	return s.seal(email, purposeRegisterPending, s.PendingEmailCookieTTL)
}

// ConfirmEmail checks the code against the staged record. On success the
// record is consumed and a verified-email claim is returned.
func (s *service) ConfirmEmail(ctx context.Context, pendingCookie, code string) (*Challenge, error) {
	email, err := s.open(pendingCookie, purposeRegisterPending)
	if err != nil {
		return nil, err
	}
	if err := s.allowAttempt(ctx, flowRegistration, email); err != nil {
		return nil, err
	}

	invalid := fmt.Errorf("invalid or expired OTP: %w", domain.ErrBadRequest)
	reg, err := s.RegistrationRepo.Get(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.OTPChallenges.WithLabelValues(flowRegistration, "expired").Inc()
			return nil, invalid
		}
		return nil, err
	}
	if reg.Expired(s.Clock.Now()) {
		// the store's TTL sweep is lazy; finish its job
		if err := s.RegistrationRepo.Delete(ctx, email); err != nil {
			s.Logger.Warn("delete expired registration", zap.String("email", email), zap.Error(err))
		}
		metrics.OTPChallenges.WithLabelValues(flowRegistration, "expired").Inc()
		return nil, invalid
	}
	if !otp.Equal(reg.VerificationOTP, strings.TrimSpace(code)) {
		metrics.OTPChallenges.WithLabelValues(flowRegistration, "mismatch").Inc()
		return nil, invalid
	}
	if err := s.RegistrationRepo.Delete(ctx, email); err != nil {
		return nil, fmt.Errorf("delete registration: %w", err)
	}
	s.resetAttempts(ctx, flowRegistration, email)
	metrics.OTPChallenges.WithLabelValues(flowRegistration, "verified").Inc()

	return s.seal(email, purposeRegisterDone, s.VerifiedEmailCookieTTL)
}

// CompleteRegistration creates the account for a verified email. Uploaded
// media is discarded again if the user cannot be stored.
func (s *service) CompleteRegistration(ctx context.Context, verifiedCookie string, req domain.RegisterRequest) (*domain.User, error) {
	email, err := s.open(verifiedCookie, purposeRegisterDone)
	if err != nil {
		return nil, err
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	if _, err := s.UserRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("user with email already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, err := s.UserRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("user with username already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	avatar, err := s.Media.UploadImage(ctx, req.AvatarPath)
	if err != nil {
		return nil, err
	}
	var cover string
	if req.CoverPath != "" {
		cover, err = s.Media.UploadImage(ctx, req.CoverPath)
		if err != nil {
			s.Media.Discard(ctx, avatar)
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.Media.Discard(ctx, avatar, cover)
		return nil, err
	}
	now := s.Clock.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        email,
		FullName:     req.FullName,
		Avatar:       avatar,
		CoverImage:   cover,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.UserRepo.Put(ctx, u); err != nil {
		s.Media.Discard(ctx, avatar, cover)
		return nil, err
	}
	s.Events.Publish(ctx, sns.EventUserRegistered, map[string]string{"user_id": u.UserID, "username": u.Username})
	return u, nil
}

// RequestPasswordReset stores a reset code on the user and mails it.
func (s *service) RequestPasswordReset(ctx context.Context, usernameOrEmail string) (*Challenge, error) {
	ident := strings.ToLower(strings.TrimSpace(usernameOrEmail))
	if ident == "" {
		return nil, fmt.Errorf("email or username is required: %w", domain.ErrBadRequest)
	}
	var (
		u   *domain.User
		err error
	)
	if strings.Contains(ident, "@") {
		u, err = s.UserRepo.GetByEmail(ctx, ident)
	} else {
		u, err = s.UserRepo.GetByUsername(ctx, ident)
	}
	if err != nil {
		return nil, err
	}

	code, err := s.GenerateOTP()
	if err != nil {
		return nil, err
	}
	expiry := s.Clock.Now().UTC().Add(s.PasswordResetOTPTTL)
	_, err = s.UserRepo.Update(ctx, u.UserID, map[string]interface{}{
		"forgot_password_otp":        code,
		"forgot_password_otp_expiry": expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("save reset code: %w", err)
	}
	s.Mailer.Send(u.Email, "Reset your password", resetMail(u.Username, code, s.PasswordResetOTPTTL))
	metrics.OTPChallenges.WithLabelValues(flowReset, "issued").Inc()

	return s.seal(u.Email, purposeResetPending, s.PasswordResetOTPTTL)
}

func (s *service) VerifyPasswordResetOTP(ctx context.Context, pendingCookie, code string) (*Challenge, error) {
	email, err := s.open(pendingCookie, purposeResetPending)
	if err != nil {
		return nil, err
	}
	if err := s.allowAttempt(ctx, flowReset, email); err != nil {
		return nil, err
	}
	u, err := s.UserRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errSessionExpired
		}
		return nil, err
	}
	if u.ForgotPasswordOTP == "" || !otp.Equal(u.ForgotPasswordOTP, strings.TrimSpace(code)) {
		metrics.OTPChallenges.WithLabelValues(flowReset, "mismatch").Inc()
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrBadRequest)
	}
	if u.ForgotPasswordOTPExpiry == nil || !s.Clock.Now().Before(*u.ForgotPasswordOTPExpiry) {
		metrics.OTPChallenges.WithLabelValues(flowReset, "expired").Inc()
		return nil, fmt.Errorf("OTP has expired: %w", domain.ErrBadRequest)
	}
	_, err = s.UserRepo.Update(ctx, u.UserID, map[string]interface{}{
		"forgot_password_otp":        nil,
		"forgot_password_otp_expiry": nil,
	})
	if err != nil {
		return nil, fmt.Errorf("clear reset code: %w", err)
	}
	s.resetAttempts(ctx, flowReset, email)
	metrics.OTPChallenges.WithLabelValues(flowReset, "verified").Inc()

	return s.seal(email, purposeResetDone, s.VerifiedEmailCookieTTL)
}

// ResetPassword sets a new password and signs the user out everywhere.
func (s *service) ResetPassword(ctx context.Context, verifiedCookie, newPassword string) error {
	email, err := s.open(verifiedCookie, purposeResetDone)
	if err != nil {
		return err
	}
	if err := validate.Var(newPassword, "required,min=8,max=72"); err != nil {
		return fmt.Errorf("password must be 8 to 72 characters: %w", domain.ErrBadRequest)
	}
	u, err := s.UserRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("reset token is invalid or expired: %w", domain.ErrBadRequest)
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := s.UserRepo.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}
	if err := s.Sessions.Revoke(ctx, u.UserID); err != nil {
		s.Logger.Warn("revoke sessions after password reset", zap.String("user_id", u.UserID), zap.Error(err))
	}
	return nil
}

func (s *service) seal(email, purpose string, ttl time.Duration) (*Challenge, error) {
	exp := s.Clock.Now().UTC().Add(ttl)
	cookie, err := s.Sealer.Seal(claim{Email: email, Purpose: purpose, ExpiresAt: exp.Unix()})
	if err != nil {
		return nil, err
	}
	return &Challenge{Cookie: cookie, ExpiresAt: exp}, nil
}

// open returns the email carried by a sealed claim of the given purpose.
func (s *service) open(cookie, purpose string) (string, error) {
	if cookie == "" {
		return "", errSessionExpired
	}
	var c claim
	if err := s.Sealer.Open(cookie, &c); err != nil {
		return "", errSessionExpired
	}
	if c.Purpose != purpose || c.Email == "" || s.Clock.Now().Unix() >= c.ExpiresAt {
		return "", errSessionExpired
	}
	return c.Email, nil
}

func (s *service) allowAttempt(ctx context.Context, flow, email string) error {
	ok, err := s.Limiter.Allow(ctx, flow+":"+email)
	if err != nil {
		// limiter outage must not lock users out
		s.Logger.Warn("otp limiter unavailable", zap.String("flow", flow), zap.Error(err))
		return nil
	}
	if !ok {
		metrics.OTPChallenges.WithLabelValues(flow, "throttled").Inc()
		return fmt.Errorf("too many attempts, try again later: %w", domain.ErrRateLimited)
	}
	return nil
}

func (s *service) resetAttempts(ctx context.Context, flow, email string) {
	if err := s.Limiter.Reset(ctx, flow+":"+email); err != nil {
		s.Logger.Warn("reset otp attempts", zap.String("flow", flow), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func verificationMail(code string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>`, code, int(ttl.Minutes()))
}

func resetMail(username, code string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Hi %s,</p><p>Your password reset code is <strong>%s</strong>. It expires in %d minutes.</p><p>If you did not ask for this, ignore this email.</p>`, username, code, int(ttl.Minutes()))
}
