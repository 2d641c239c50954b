// Package cookiecrypt seals short-lived claims into opaque cookie values.
package cookiecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var ErrInvalid = errors.New("invalid sealed value")

// Sealer encrypts JSON payloads with AES-256-GCM. Each call draws a fresh nonce.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer takes a hex-encoded 32-byte key.
func NewSealer(hexKey string) (*Sealer, error) {
	if hexKey == "" {
		return nil, errors.New("cookie encryption key is empty")
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

// Seal marshals v and returns base64url(nonce || ciphertext || tag).
func (s *Sealer) Seal(v any) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal sealed payload: %w", err)
	}
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal into v. Tampered, truncated or foreign values return ErrInvalid.
func (s *Sealer) Open(value string, v any) error {
	buf, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return ErrInvalid
	}
	nonceSize := s.gcm.NonceSize()
	if len(buf) < nonceSize {
		return ErrInvalid
	}
	plain, err := s.gcm.Open(nil, buf[:nonceSize], buf[nonceSize:], nil)
	if err != nil {
		return ErrInvalid
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return ErrInvalid
	}
	return nil
}
