package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/videotube-api/internal/application/media"
	"github.com/videotube-api/internal/domain"
)

// maxUploadMemory bounds how much of a multipart body is kept in memory;
// the rest spills to temp files.
const maxUploadMemory = 32 << 20

// stager copies multipart files to local disk for the media service.
type stager struct {
	media media.Service
	paths []string
}

func newStager(m media.Service) *stager { return &stager{media: m} }

func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return fmt.Errorf("invalid multipart body: %w", domain.ErrBadRequest)
	}
	return nil
}

// one stages the first file under field. A missing field yields "".
func (s *stager) one(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return "", nil
	}
	return s.stage(r, field, 0)
}

// all stages every file under field, in order.
func (s *stager) all(r *http.Request, field string) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	out := make([]string, 0, len(headers))
	for i := range headers {
		p, err := s.stage(r, field, i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *stager) stage(r *http.Request, field string, i int) (string, error) {
	fh := r.MultipartForm.File[field][i]
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", field, domain.ErrBadRequest)
	}
	defer f.Close()
	p, err := s.media.Stage(f, fh.Filename)
	if err != nil {
		return "", err
	}
	s.paths = append(s.paths, p)
	return p, nil
}

// cleanup removes staged files the services did not consume along with
// the multipart spill files.
func (s *stager) cleanup(r *http.Request) {
	s.media.Cleanup(s.paths...)
	s.paths = nil
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formPtr returns nil when field is absent so partial updates can skip it.
func formPtr(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vals, ok := r.MultipartForm.Value[field]
	if !ok || len(vals) == 0 {
		return nil
	}
	return &vals[0]
}
