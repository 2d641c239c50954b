package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/videotube-api/internal/domain"
	jwtinfra "github.com/videotube-api/internal/infrastructure/jwt"
	"github.com/videotube-api/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// maxSwapAttempts bounds retries when a concurrent login moves the user's
// refresh slot between our read and our conditional write.
const maxSwapAttempts = 3

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

type LoginResult struct {
	User *domain.User
	Pair *domain.TokenPair
}

// Service is the Token Service: it issues, verifies, rotates and revokes
// access/refresh token pairs.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Rotate(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Revoke(ctx context.Context, userID string) error
	VerifyAccess(token string) (string, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SwapRefreshToken(ctx context.Context, userID, expected, next string) error
}

type tokenStore interface {
	Put(ctx context.Context, rt *domain.RefreshToken) error
	Get(ctx context.Context, tokenID string) (*domain.RefreshToken, error)
	MarkSpent(ctx context.Context, tokenID string) error
	RevokeFamily(ctx context.Context, familyID string) error
}

type tokenSigner interface {
	SignAccess(userID string) (string, time.Time, error)
	SignRefresh(userID, familyID, tokenID string) (string, time.Time, error)
	Verify(token, wantType string) (*jwtinfra.Claims, error)
}

// ServiceDeps bundles all dependencies for the session service.
type ServiceDeps struct {
	UserRepo    userStore
	TokenRepo   tokenStore
	JWTProvider tokenSigner
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

type service struct {
	userRepo  userStore
	tokenRepo tokenStore
	signer    tokenSigner
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		userRepo:  deps.UserRepo,
		tokenRepo: deps.TokenRepo,
		signer:    deps.JWTProvider,
		clock:     clock,
		log:       log,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ident := strings.TrimSpace(req.UsernameOrEmail)
	var (
		u   *domain.User
		err error
	)
	if strings.Contains(ident, "@") {
		u, err = s.userRepo.GetByEmail(ctx, strings.ToLower(ident))
	} else {
		u, err = s.userRepo.GetByUsername(ctx, strings.ToLower(ident))
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid user credentials: %w", domain.ErrUnauthorized)
	}
	pair, err := s.issue(ctx, u, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Pair: pair}, nil
}

// startFamily starts a new rotation family for the user, replacing whatever
// refresh token the user held.
func (s *service) startFamily(ctx context.Context, userID string) (*domain.TokenPair, error) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u, uuid.NewString())
}

func (s *service) issue(ctx context.Context, u *domain.User, familyID string) (*domain.TokenPair, error) {
	pair, err := s.signPair(ctx, u.UserID, familyID)
	if err != nil {
		return nil, err
	}
	expected := u.RefreshToken
	for attempt := 1; ; attempt++ {
		err = s.userRepo.SwapRefreshToken(ctx, u.UserID, expected, pair.RefreshToken)
		if err == nil {
			return pair, nil
		}
		if !errors.Is(err, domain.ErrUnauthorized) || attempt == maxSwapAttempts {
			return nil, err
		}
		fresh, getErr := s.userRepo.Get(ctx, u.UserID)
		if getErr != nil {
			return nil, getErr
		}
		expected = fresh.RefreshToken
	}
}

// signPair signs both tokens and records the refresh token in its family.
func (s *service) signPair(ctx context.Context, userID, familyID string) (*domain.TokenPair, error) {
	access, accessExp, err := s.signer.SignAccess(userID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	jti := uuid.NewString()
	refresh, refreshExp, err := s.signer.SignRefresh(userID, familyID, jti)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	err = s.tokenRepo.Put(ctx, &domain.RefreshToken{
		TokenID:   jti,
		FamilyID:  familyID,
		UserID:    userID,
		CreatedAt: s.clock.Now().UTC(),
		ExpiresAt: refreshExp.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("record refresh token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Rotate exchanges a live refresh token for a new pair in the same family.
// Presenting a token that was already spent revokes the whole family.
func (s *service) Rotate(ctx context.Context, incoming string) (*domain.TokenPair, error) {
	if incoming == "" {
		return nil, fmt.Errorf("refresh token missing: %w", domain.ErrUnauthorized)
	}
	claims, err := s.signer.Verify(incoming, jwtinfra.TypeRefresh)
	if err != nil {
		metrics.TokenRotations.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.TokenRotations.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}

	rec, err := s.tokenRepo.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.TokenRotations.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("unknown refresh token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if rec.Spent || rec.Revoked {
		s.revokeFamily(ctx, u, rec.FamilyID)
		metrics.TokenRotations.WithLabelValues("reuse").Inc()
		return nil, fmt.Errorf("refresh token is expired or used: %w", domain.ErrUnauthorized)
	}
	if u.RefreshToken != incoming {
		metrics.TokenRotations.WithLabelValues("stale").Inc()
		return nil, fmt.Errorf("refresh token is expired or used: %w", domain.ErrUnauthorized)
	}

	if err := s.tokenRepo.MarkSpent(ctx, rec.TokenID); err != nil {
		metrics.TokenRotations.WithLabelValues("stale").Inc()
		return nil, err
	}
	pair, err := s.signPair(ctx, u.UserID, rec.FamilyID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SwapRefreshToken(ctx, u.UserID, incoming, pair.RefreshToken); err != nil {
		metrics.TokenRotations.WithLabelValues("stale").Inc()
		return nil, err
	}
	metrics.TokenRotations.WithLabelValues("rotated").Inc()
	return pair, nil
}

// revokeFamily marks every token of the family revoked and empties the user's
// slot when it still holds a member of that family.
func (s *service) revokeFamily(ctx context.Context, u *domain.User, familyID string) {
	s.log.Warn("refresh token reuse detected", zap.String("user_id", u.UserID), zap.String("family_id", familyID))
	if err := s.tokenRepo.RevokeFamily(ctx, familyID); err != nil {
		s.log.Error("revoke token family", zap.String("family_id", familyID), zap.Error(err))
	}
	if u.RefreshToken == "" {
		return
	}
	current, err := s.signer.Verify(u.RefreshToken, jwtinfra.TypeRefresh)
	if err != nil || current.FamilyID != familyID {
		return
	}
	if err := s.userRepo.SwapRefreshToken(ctx, u.UserID, u.RefreshToken, ""); err != nil {
		s.log.Warn("clear refresh slot after reuse", zap.String("user_id", u.UserID), zap.Error(err))
	}
}

// Revoke logs the user out by emptying the refresh slot and revoking its
// family. Access tokens already issued stay valid until they expire.
func (s *service) Revoke(ctx context.Context, userID string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.RefreshToken == "" {
		return nil
	}
	if claims, err := s.signer.Verify(u.RefreshToken, jwtinfra.TypeRefresh); err == nil {
		if err := s.tokenRepo.RevokeFamily(ctx, claims.FamilyID); err != nil {
			s.log.Warn("revoke token family on logout", zap.String("user_id", userID), zap.Error(err))
		}
	}
	err = s.userRepo.SwapRefreshToken(ctx, userID, u.RefreshToken, "")
	if errors.Is(err, domain.ErrUnauthorized) {
		// a concurrent rotation or login moved the slot; logout wins
		fresh, getErr := s.userRepo.Get(ctx, userID)
		if getErr != nil {
			return getErr
		}
		return s.userRepo.SwapRefreshToken(ctx, userID, fresh.RefreshToken, "")
	}
	return err
}

// VerifyAccess is a pure signature and expiry check with no store lookup.
func (s *service) VerifyAccess(token string) (string, error) {
	claims, err := s.signer.Verify(token, jwtinfra.TypeAccess)
	if err != nil {
		return "", fmt.Errorf("invalid access token: %w", domain.ErrUnauthorized)
	}
	return claims.UserID, nil
}
