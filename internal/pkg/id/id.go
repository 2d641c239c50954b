package id

import (
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/videotube-api/internal/domain"
)

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time and safe for use as DynamoDB partition keys.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Valid reports whether s is a well-formed entity id.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Check returns a bad-request error naming what when s is missing or malformed.
func Check(what, s string) error {
	if s == "" {
		return fmt.Errorf("%s id is missing: %w", what, domain.ErrBadRequest)
	}
	if !Valid(s) {
		return fmt.Errorf("invalid %s id format: %w", what, domain.ErrBadRequest)
	}
	return nil
}
