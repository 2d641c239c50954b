// Package media stages uploaded files on local disk and hands them to the
// media store.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/videotube-api/internal/domain"
	s3infra "github.com/videotube-api/internal/infrastructure/s3"
	"go.uber.org/zap"
)

// Store is the external media store. It consumes the local file.
type Store interface {
	UploadFile(ctx context.Context, localPath string, kind s3infra.Kind) (*s3infra.Asset, error)
	DeleteByURL(ctx context.Context, url string) error
}

type Service interface {
	// Stage copies r into a temp file and returns its path.
	Stage(r io.Reader, filename string) (string, error)
	UploadImage(ctx context.Context, localPath string) (string, error)
	UploadVideo(ctx context.Context, localPath string) (*s3infra.Asset, error)
	// Discard deletes stored objects; failures are logged.
	Discard(ctx context.Context, urls ...string)
	// Cleanup removes staged files that were never uploaded.
	Cleanup(paths ...string)
}

type ServiceDeps struct {
	Store   Store
	TempDir string
	Logger  *zap.Logger
}

type service struct {
	store   Store
	tempDir string
	log     *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &service{store: deps.Store, tempDir: deps.TempDir, log: log}
}

func (s *service) Stage(r io.Reader, filename string) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "upload-*-"+sanitizeFilename(filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (s *service) UploadImage(ctx context.Context, localPath string) (string, error) {
	asset, err := s.upload(ctx, localPath, s3infra.KindImage)
	if err != nil {
		return "", err
	}
	return asset.URL, nil
}

func (s *service) UploadVideo(ctx context.Context, localPath string) (*s3infra.Asset, error) {
	return s.upload(ctx, localPath, s3infra.KindVideo)
}

func (s *service) upload(ctx context.Context, localPath string, kind s3infra.Kind) (*s3infra.Asset, error) {
	if localPath == "" {
		return nil, fmt.Errorf("%s file is missing: %w", kind, domain.ErrBadRequest)
	}
	asset, err := s.store.UploadFile(ctx, localPath, kind)
	if err != nil {
		s.log.Warn("media upload failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, fmt.Errorf("error while uploading %s: %w", kind, domain.ErrBadRequest)
	}
	return asset, nil
}

func (s *service) Discard(ctx context.Context, urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := s.store.DeleteByURL(ctx, u); err != nil {
			s.log.Warn("media delete failed", zap.String("url", u), zap.Error(err))
		}
	}
}

func (s *service) Cleanup(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.log.Warn("temp file cleanup failed", zap.String("path", p), zap.Error(err))
		}
	}
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) to prevent path traversal.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." && result != ".." {
		return result
	}
	return "_"
}
