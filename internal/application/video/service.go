package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/domain"
	s3infra "github.com/videotube-api/internal/infrastructure/s3"
	"github.com/videotube-api/internal/infrastructure/sns"
	"github.com/videotube-api/internal/pkg/id"
	"github.com/videotube-api/internal/pkg/validate"
	"go.uber.org/zap"
)

type Service interface {
	Publish(ctx context.Context, ownerID string, req domain.PublishVideoRequest) (*domain.Video, error)
	Get(ctx context.Context, actorID, videoID string) (*domain.Video, error)
	Update(ctx context.Context, actorID, videoID string, req domain.UpdateVideoRequest) (*domain.Video, error)
	Delete(ctx context.Context, actorID, videoID string) error
	TogglePublish(ctx context.Context, actorID, videoID string) (*domain.Video, error)
	// List returns published videos, optionally of one owner. An owner
	// listing their own channel also sees unpublished videos.
	List(ctx context.Context, actorID, ownerID string, p listing.Params) (*listing.Page[domain.Video], error)
}

type videoStore interface {
	Put(ctx context.Context, v *domain.Video) error
	Get(ctx context.Context, videoID string) (*domain.Video, error)
	Update(ctx context.Context, videoID string, updates map[string]interface{}) (*domain.Video, error)
	Delete(ctx context.Context, videoID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Video, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	ListPublished(ctx context.Context) ([]domain.Video, error)
	CountPublished(ctx context.Context) (int, error)
}

type purger interface {
	Purge(ctx context.Context, subjectType domain.SubjectType, subjectID string) error
}

type mediaUploader interface {
	UploadImage(ctx context.Context, localPath string) (string, error)
	UploadVideo(ctx context.Context, localPath string) (*s3infra.Asset, error)
	Discard(ctx context.Context, urls ...string)
}

type ServiceDeps struct {
	VideoRepo videoStore
	Purger    purger
	Owners    listing.OwnerLoader
	Media     mediaUploader
	Events    sns.Publisher
	Clock     clockwork.Clock
	Logger    *zap.Logger
}

type service struct {
	videos videoStore
	purger purger
	owners listing.OwnerLoader
	media  mediaUploader
	events sns.Publisher
	clock  clockwork.Clock
	log    *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		videos: deps.VideoRepo,
		purger: deps.Purger,
		owners: deps.Owners,
		media:  deps.Media,
		events: deps.Events,
		clock:  deps.Clock,
		log:    deps.Logger,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) Publish(ctx context.Context, ownerID string, req domain.PublishVideoRequest) (*domain.Video, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	asset, err := s.media.UploadVideo(ctx, req.VideoPath)
	if err != nil {
		return nil, err
	}
	thumb, err := s.media.UploadImage(ctx, req.ThumbnailPath)
	if err != nil {
		s.media.Discard(ctx, asset.URL)
		return nil, err
	}
	now := s.clock.Now().UTC()
	v := &domain.Video{
		VideoID:     id.New(),
		OwnerID:     ownerID,
		VideoFile:   asset.URL,
		Thumbnail:   thumb,
		Title:       req.Title,
		Description: req.Description,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if asset.Duration != nil {
		v.Duration = *asset.Duration
	}
	if err := s.videos.Put(ctx, v); err != nil {
		s.media.Discard(ctx, asset.URL, thumb)
		return nil, err
	}
	if s.events != nil {
		s.events.Publish(ctx, sns.EventVideoPublished, map[string]string{"video_id": v.VideoID, "owner_id": ownerID})
	}
	return v, nil
}

func (s *service) Get(ctx context.Context, actorID, videoID string) (*domain.Video, error) {
	v, err := s.load(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err := domain.AssertVisible(v, actorID); err != nil {
		return nil, err
	}
	owners, err := s.owners.BatchGetOwners(ctx, []string{v.OwnerID})
	if err != nil {
		return nil, err
	}
	if o, ok := owners[v.OwnerID]; ok {
		v.Owner = &o
	}
	return v, nil
}

func (s *service) Update(ctx context.Context, actorID, videoID string, req domain.UpdateVideoRequest) (*domain.Video, error) {
	v, err := s.loadOwned(ctx, actorID, videoID)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	var thumb string
	if req.ThumbnailPath != "" {
		thumb, err = s.media.UploadImage(ctx, req.ThumbnailPath)
		if err != nil {
			return nil, err
		}
		updates["thumbnail"] = thumb
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrBadRequest)
	}
	updates["updated_at"] = s.clock.Now().UTC()
	updated, err := s.videos.Update(ctx, videoID, updates)
	if err != nil {
		s.media.Discard(ctx, thumb)
		return nil, err
	}
	if thumb != "" {
		s.media.Discard(ctx, v.Thumbnail)
	}
	return updated, nil
}

// Delete removes the video, then everything that refers to it. Media is
// discarded last; a failing cascade step still reports an error.
func (s *service) Delete(ctx context.Context, actorID, videoID string) error {
	v, err := s.loadOwned(ctx, actorID, videoID)
	if err != nil {
		return err
	}
	if err := s.videos.Delete(ctx, videoID); err != nil {
		return err
	}
	err = s.purger.Purge(ctx, domain.SubjectVideo, videoID)
	s.media.Discard(ctx, v.VideoFile, v.Thumbnail)
	if err != nil {
		return fmt.Errorf("video deleted, cleanup incomplete: %w", err)
	}
	s.log.Info("video deleted", zap.String("video_id", videoID), zap.String("owner_id", actorID))
	return nil
}

func (s *service) TogglePublish(ctx context.Context, actorID, videoID string) (*domain.Video, error) {
	v, err := s.loadOwned(ctx, actorID, videoID)
	if err != nil {
		return nil, err
	}
	return s.videos.Update(ctx, videoID, map[string]interface{}{
		"is_published": !v.IsPublished,
		"updated_at":   s.clock.Now().UTC(),
	})
}

func (s *service) List(ctx context.Context, actorID, ownerID string, p listing.Params) (*listing.Page[domain.Video], error) {
	q := listing.Query[domain.Video]{
		Resource: "videos",
		OwnerOf:  func(v domain.Video) string { return v.OwnerID },
		Attach:   func(v *domain.Video, o domain.Owner) { v.Owner = &o },
		Text: func(v domain.Video) []string {
			fields := []string{v.Title, v.Description}
			if v.Owner != nil {
				fields = append(fields, v.Owner.Username, v.Owner.FullName)
			}
			return fields
		},
		SortKeys: SortKeys,
	}
	switch {
	case ownerID == "":
		q.Fetch = s.videos.ListPublished
		q.Count = s.videos.CountPublished
	case ownerID == actorID:
		if err := id.Check("user", ownerID); err != nil {
			return nil, err
		}
		q.Fetch = func(ctx context.Context) ([]domain.Video, error) { return s.videos.ListByOwner(ctx, ownerID) }
		q.Count = func(ctx context.Context) (int, error) { return s.videos.CountByOwner(ctx, ownerID) }
	default:
		if err := id.Check("user", ownerID); err != nil {
			return nil, err
		}
		q.Fetch = func(ctx context.Context) ([]domain.Video, error) {
			all, err := s.videos.ListByOwner(ctx, ownerID)
			if err != nil {
				return nil, err
			}
			published := make([]domain.Video, 0, len(all))
			for _, v := range all {
				if v.IsPublished {
					published = append(published, v)
				}
			}
			return published, nil
		}
	}
	return listing.Run(ctx, q, p, s.owners)
}

// SortKeys are the fields a video listing can be sorted by.
var SortKeys = map[string]func(a, b domain.Video) int{
	"createdAt": listing.ByTime(func(v domain.Video) time.Time { return v.CreatedAt }),
	"updatedAt": listing.ByTime(func(v domain.Video) time.Time { return v.UpdatedAt }),
	"views":     listing.ByNumber(func(v domain.Video) int { return v.Views }),
	"duration":  listing.ByNumber(func(v domain.Video) float64 { return v.Duration }),
	"title":     listing.ByString(func(v domain.Video) string { return v.Title }),
}

func (s *service) load(ctx context.Context, videoID string) (*domain.Video, error) {
	if err := id.Check("video", videoID); err != nil {
		return nil, err
	}
	v, err := s.videos.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("video does not exist: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return v, nil
}

// loadOwned confirms existence before ownership so a missing video is
// NotFound and someone else's video is Forbidden.
func (s *service) loadOwned(ctx context.Context, actorID, videoID string) (*domain.Video, error) {
	v, err := s.load(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err := domain.AssertOwner(v, actorID); err != nil {
		return nil, err
	}
	return v, nil
}
