package cookiecrypt

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type claim struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

func TestSealOpen_RoundTrip(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal(claim{Email: "a@b.com", Purpose: "verify"})
	require.NoError(t, err)

	var got claim
	require.NoError(t, s.Open(sealed, &got))
	assert.Equal(t, claim{Email: "a@b.com", Purpose: "verify"}, got)
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	a, err := s.Seal(claim{Email: "a@b.com"})
	require.NoError(t, err)
	b, err := s.Seal(claim{Email: "a@b.com"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_Tampered(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)
	sealed, err := s.Seal(claim{Email: "a@b.com"})
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	var got claim
	assert.ErrorIs(t, s.Open(tampered, &got), ErrInvalid)
	assert.ErrorIs(t, s.Open("not base64 !!", &got), ErrInvalid)
	assert.ErrorIs(t, s.Open("", &got), ErrInvalid)
}

func TestOpen_DifferentKey(t *testing.T) {
	s1, err := NewSealer(testKey)
	require.NoError(t, err)
	s2, err := NewSealer(strings.Repeat("ab", 32))
	require.NoError(t, err)

	sealed, err := s1.Seal(claim{Email: "a@b.com"})
	require.NoError(t, err)
	var got claim
	assert.ErrorIs(t, s2.Open(sealed, &got), ErrInvalid)
}

func TestNewSealer_RejectsBadKeys(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)
	_, err = NewSealer("zz")
	assert.Error(t, err)
	_, err = NewSealer("0011")
	assert.ErrorContains(t, err, "32 bytes")
}
