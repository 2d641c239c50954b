package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/videotube-api/internal/domain"
)

func TestNew_IsValid(t *testing.T) {
	assert.True(t, Valid(New()))
}

func TestValid_Rejects(t *testing.T) {
	for _, s := range []string{"", "abc", "64b7f0c2e1a2b3c4d5e6f7a8", "01ARZ3NDEKTSV4RRFFQ69G5FA!"} {
		assert.False(t, Valid(s), s)
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check("video", New()))
	assert.ErrorIs(t, Check("video", ""), domain.ErrBadRequest)
	assert.ErrorContains(t, Check("video", "nope"), "invalid video id format")
}
