package playlist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/videotube-api/internal/application/listing"
	"github.com/videotube-api/internal/domain"
	"github.com/videotube-api/internal/pkg/id"
	"github.com/videotube-api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, ownerID string, req domain.CreatePlaylistRequest) (*domain.Playlist, error)
	Get(ctx context.Context, actorID, playlistID string) (*domain.Playlist, error)
	// ListByUser returns every playlist when the caller owns them, otherwise
	// only the public ones. Newest first.
	ListByUser(ctx context.Context, actorID, userID string) ([]domain.Playlist, error)
	Update(ctx context.Context, actorID, playlistID string, req domain.UpdatePlaylistRequest) (*domain.Playlist, error)
	Delete(ctx context.Context, actorID, playlistID string) error
	AddVideo(ctx context.Context, actorID, playlistID, videoID string) (*domain.Playlist, error)
	RemoveVideo(ctx context.Context, actorID, playlistID, videoID string) (*domain.Playlist, error)
}

type playlistStore interface {
	Put(ctx context.Context, p *domain.Playlist) error
	Get(ctx context.Context, playlistID string) (*domain.Playlist, error)
	Update(ctx context.Context, playlistID string, updates map[string]interface{}) (*domain.Playlist, error)
	Delete(ctx context.Context, playlistID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Playlist, error)
	AddVideo(ctx context.Context, playlistID, videoID string) (*domain.Playlist, error)
	RemoveVideo(ctx context.Context, playlistID, videoID string) (*domain.Playlist, error)
}

type videoStore interface {
	Get(ctx context.Context, videoID string) (*domain.Video, error)
}

type ServiceDeps struct {
	PlaylistRepo playlistStore
	VideoRepo    videoStore
	Owners       listing.OwnerLoader
	Clock        clockwork.Clock
}

type service struct {
	playlists playlistStore
	videos    videoStore
	owners    listing.OwnerLoader
	clock     clockwork.Clock
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		playlists: deps.PlaylistRepo,
		videos:    deps.VideoRepo,
		owners:    deps.Owners,
		clock:     deps.Clock,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	return s
}

func (s *service) Create(ctx context.Context, ownerID string, req domain.CreatePlaylistRequest) (*domain.Playlist, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	now := s.clock.Now().UTC()
	p := &domain.Playlist{
		PlaylistID:  id.New(),
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		IsPublic:    true,
		Videos:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsPublic != nil {
		p.IsPublic = *req.IsPublic
	}
	if err := s.playlists.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, actorID, playlistID string) (*domain.Playlist, error) {
	p, err := s.load(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := domain.AssertVisible(p, actorID); err != nil {
		return nil, err
	}
	owners, err := s.owners.BatchGetOwners(ctx, []string{p.OwnerID})
	if err != nil {
		return nil, err
	}
	if o, ok := owners[p.OwnerID]; ok {
		p.Owner = &o
	}
	return p, nil
}

func (s *service) ListByUser(ctx context.Context, actorID, userID string) ([]domain.Playlist, error) {
	if err := id.Check("user", userID); err != nil {
		return nil, err
	}
	all, err := s.playlists.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Playlist, 0, len(all))
	for _, p := range all {
		if p.IsPublic || userID == actorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, actorID, playlistID string, req domain.UpdatePlaylistRequest) (*domain.Playlist, error) {
	if _, err := s.loadOwned(ctx, actorID, playlistID); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty: %w", domain.ErrBadRequest)
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrBadRequest)
	}
	updates["updated_at"] = s.clock.Now().UTC()
	return s.playlists.Update(ctx, playlistID, updates)
}

func (s *service) Delete(ctx context.Context, actorID, playlistID string) error {
	if _, err := s.loadOwned(ctx, actorID, playlistID); err != nil {
		return err
	}
	return s.playlists.Delete(ctx, playlistID)
}

func (s *service) AddVideo(ctx context.Context, actorID, playlistID, videoID string) (*domain.Playlist, error) {
	p, err := s.prepareMembership(ctx, actorID, playlistID, videoID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(p.Videos, videoID) {
		return nil, fmt.Errorf("video already in playlist: %w", domain.ErrBadRequest)
	}
	return s.playlists.AddVideo(ctx, playlistID, videoID)
}

func (s *service) RemoveVideo(ctx context.Context, actorID, playlistID, videoID string) (*domain.Playlist, error) {
	p, err := s.prepareMembership(ctx, actorID, playlistID, videoID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(p.Videos, videoID) {
		return nil, fmt.Errorf("video not in playlist: %w", domain.ErrBadRequest)
	}
	return s.playlists.RemoveVideo(ctx, playlistID, videoID)
}

// prepareMembership checks, in order: id formats, playlist existence,
// playlist ownership, video existence.
func (s *service) prepareMembership(ctx context.Context, actorID, playlistID, videoID string) (*domain.Playlist, error) {
	if err := id.Check("video", videoID); err != nil {
		return nil, err
	}
	p, err := s.loadOwned(ctx, actorID, playlistID)
	if err != nil {
		return nil, err
	}
	if _, err := s.videos.Get(ctx, videoID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("video does not exist: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *service) load(ctx context.Context, playlistID string) (*domain.Playlist, error) {
	if err := id.Check("playlist", playlistID); err != nil {
		return nil, err
	}
	p, err := s.playlists.Get(ctx, playlistID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("playlist does not exist: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *service) loadOwned(ctx context.Context, actorID, playlistID string) (*domain.Playlist, error) {
	p, err := s.load(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := domain.AssertOwner(p, actorID); err != nil {
		return nil, err
	}
	return p, nil
}
