package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/infrastructure/sns"
	"github.com/videotube-api/internal/pkg/validate"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldUsername     = "username"
	fieldEmail        = "email"
	fieldFullName     = "full_name"
	fieldAvatar       = "avatar"
	fieldCoverImage   = "cover_image"
	fieldPasswordHash = "password_hash"
)

type Service interface {
	GetCurrent(ctx context.Context, userID string) (*domain.User, error)
	UpdateAccount(ctx context.Context, userID string, req domain.UpdateAccountRequest) (*domain.User, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (*domain.User, error)
	UpdateCover(ctx context.Context, userID, localPath string) (*domain.User, error)
	ChannelProfile(ctx context.Context, viewerID, username string) (*domain.ChannelProfile, error)
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
	// Delete removes everything the user owns or created, then the user. If
	// any cascade step fails the user record is kept so the call can be
	// retried, and the joined error is returned.
	Delete(ctx context.Context, userID, password string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
}

type videoStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Video, error)
	DeleteByOwner(ctx context.Context, ownerID string) ([]string, error)
}

type tweetStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Tweet, error)
	DeleteByOwner(ctx context.Context, ownerID string) ([]string, error)
}

type commentStore interface {
	DeleteByOwner(ctx context.Context, ownerID string) ([]string, error)
}

type playlistStore interface {
	DeleteByOwner(ctx context.Context, ownerID string) error
}

type relationStore interface {
	Exists(ctx context.Context, actorID, subjectKey string) (bool, error)
	CountByActor(ctx context.Context, actorID, prefix string) (int, error)
	CountBySubject(ctx context.Context, subjectKey string) (int, error)
	DeleteByActor(ctx context.Context, actorID string) error
	DeleteBySubject(ctx context.Context, subjectKey string) error
}

type reportStore interface {
	DeleteByReporter(ctx context.Context, reporterID string) error
}

type tokenStore interface {
	DeleteByUser(ctx context.Context, userID string) error
}

type purger interface {
	Purge(ctx context.Context, subjectType domain.SubjectType, subjectID string) error
	Comments(ctx context.Context, commentIDs []string) error
}

type mediaUploader interface {
	UploadImage(ctx context.Context, localPath string) (string, error)
	Discard(ctx context.Context, urls ...string)
}

type ServiceDeps struct {
	UserRepo     userStore
	VideoRepo    videoStore
	TweetRepo    tweetStore
	CommentRepo  commentStore
	PlaylistRepo playlistStore
	RelationRepo relationStore
	ReportRepo   reportStore
	TokenRepo    tokenStore
	Purger       purger
	Media        mediaUploader
	Events       sns.Publisher
	Logger       *zap.Logger
}

type service struct {
	repo      userStore
	videos    videoStore
	tweets    tweetStore
	comments  commentStore
	playlists playlistStore
	relations relationStore
	reports   reportStore
	tokens    tokenStore
	purger    purger
	media     mediaUploader
	events    sns.Publisher
	log       *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:      deps.UserRepo,
		videos:    deps.VideoRepo,
		tweets:    deps.TweetRepo,
		comments:  deps.CommentRepo,
		playlists: deps.PlaylistRepo,
		relations: deps.RelationRepo,
		reports:   deps.ReportRepo,
		tokens:    deps.TokenRepo,
		purger:    deps.Purger,
		media:     deps.Media,
		events:    deps.Events,
		log:       deps.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) GetCurrent(ctx context.Context, userID string) (*domain.User, error) {
	return s.load(ctx, userID)
}

func (s *service) UpdateAccount(ctx context.Context, userID string, req domain.UpdateAccountRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, fmt.Errorf("full name cannot be empty: %w", domain.ErrBadRequest)
		}
		updates[fieldFullName] = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != u.Email {
			if err := s.assertFree(ctx, s.repo.GetByEmail, email, userID, "email already registered"); err != nil {
				return nil, err
			}
			updates[fieldEmail] = email
		}
	}
	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if username != u.Username {
			if err := s.assertFree(ctx, s.repo.GetByUsername, username, userID, "username already taken"); err != nil {
				return nil, err
			}
			updates[fieldUsername] = username
		}
	}
	if len(updates) == 0 {
		return u, nil
	}
	return s.repo.Update(ctx, userID, updates)
}

// assertFree fails with ErrConflict when value already belongs to another user.
func (s *service) assertFree(ctx context.Context, lookup func(context.Context, string) (*domain.User, error), value, userID, msg string) error {
	other, err := lookup(ctx, value)
	switch {
	case err == nil && other.UserID != userID:
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return err
	}
	return nil
}

func (s *service) UpdateAvatar(ctx context.Context, userID, localPath string) (*domain.User, error) {
	return s.replaceImage(ctx, userID, localPath, fieldAvatar, func(u *domain.User) string { return u.Avatar })
}

func (s *service) UpdateCover(ctx context.Context, userID, localPath string) (*domain.User, error) {
	return s.replaceImage(ctx, userID, localPath, fieldCoverImage, func(u *domain.User) string { return u.CoverImage })
}

// replaceImage uploads the new image first and only discards the old one
// once the user record points at the new URL.
func (s *service) replaceImage(ctx context.Context, userID, localPath, field string, current func(*domain.User) string) (*domain.User, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.media.UploadImage(ctx, localPath)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, userID, map[string]interface{}{field: url})
	if err != nil {
		s.media.Discard(ctx, url)
		return nil, err
	}
	s.media.Discard(ctx, current(u))
	return updated, nil
}

func (s *service) ChannelProfile(ctx context.Context, viewerID, username string) (*domain.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, fmt.Errorf("username is missing: %w", domain.ErrBadRequest)
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("channel does not exist: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	profile := &domain.ChannelProfile{
		UserID:     u.UserID,
		Username:   u.Username,
		FullName:   u.FullName,
		Email:      u.Email,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
	}
	channelKey := domain.SubjectKey(domain.RelationSubscription, domain.SubjectChannel, u.UserID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.relations.CountBySubject(gctx, channelKey)
		profile.SubscribersCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.relations.CountByActor(gctx, u.UserID, domain.SubjectPrefix(domain.RelationSubscription, domain.SubjectChannel))
		profile.ChannelsSubscribedToCount = n
		return err
	})
	if viewerID != "" && viewerID != u.UserID {
		g.Go(func() error {
			ok, err := s.relations.Exists(gctx, viewerID, channelKey)
			profile.IsSubscribed = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *service) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if req.NewPassword != req.ConfirmNewPassword {
		return fmt.Errorf("new password and confirmation do not match: %w", domain.ErrBadRequest)
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.repo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
	return err
}

func (s *service) Delete(ctx context.Context, userID, password string) error {
	if password == "" {
		return fmt.Errorf("password is required: %w", domain.ErrBadRequest)
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return fmt.Errorf("password is incorrect: %w", domain.ErrUnauthorized)
	}

	var (
		errs  []error
		media = []string{u.Avatar, u.CoverImage}
	)
	step := func(name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	videos, err := s.videos.ListByOwner(ctx, userID)
	step("list videos", err)
	for _, v := range videos {
		media = append(media, v.VideoFile, v.Thumbnail)
		step("purge video", s.purger.Purge(ctx, domain.SubjectVideo, v.VideoID))
	}
	_, err = s.videos.DeleteByOwner(ctx, userID)
	step("delete videos", err)

	tweets, err := s.tweets.ListByOwner(ctx, userID)
	step("list tweets", err)
	for _, t := range tweets {
		media = append(media, t.Images...)
		step("purge tweet", s.purger.Purge(ctx, domain.SubjectTweet, t.TweetID))
	}
	_, err = s.tweets.DeleteByOwner(ctx, userID)
	step("delete tweets", err)

	commentIDs, err := s.comments.DeleteByOwner(ctx, userID)
	step("delete comments", err)
	step("purge comments", s.purger.Comments(ctx, commentIDs))
	step("delete playlists", s.playlists.DeleteByOwner(ctx, userID))
	step("delete own relations", s.relations.DeleteByActor(ctx, userID))
	step("delete subscribers", s.relations.DeleteBySubject(ctx, domain.SubjectKey(domain.RelationSubscription, domain.SubjectChannel, userID)))
	step("delete reports", s.reports.DeleteByReporter(ctx, userID))
	step("delete refresh tokens", s.tokens.DeleteByUser(ctx, userID))

	if err := errors.Join(errs...); err != nil {
		s.log.Error("account deletion incomplete", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("account deletion incomplete: %w", err)
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.media.Discard(ctx, media...)
	if s.events != nil {
		s.events.Publish(ctx, sns.EventUserDeleted, map[string]string{"user_id": userID, "username": u.Username})
	}
	s.log.Info("account deleted", zap.String("user_id", userID))
	return nil
}

func (s *service) load(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}
