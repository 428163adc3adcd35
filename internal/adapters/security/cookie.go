package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

// CookieSealer encrypts session ids into channel cookie values with an
// AEAD. Encryption keeps the id opaque; authentication means a tampered
// cookie fails to open instead of resolving to someone else's session.
type CookieSealer struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewCookieSealer derives a fixed-size AEAD key from the configured secret.
// Hashing the secret tolerates human-length key material in config.
func NewCookieSealer(secret string) (*CookieSealer, error) {
	if secret == "" {
		return nil, errors.New("cookie secret is required")
	}
	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &CookieSealer{aead: aead}, nil
}

func (s *CookieSealer) Seal(sessionID uuid.UUID) (string, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, sessionID[:], nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *CookieSealer) Open(sealed string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode cookie value: %w", err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return uuid.Nil, errors.New("cookie value too short")
	}
	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("open cookie value: %w", err)
	}
	id, err := uuid.FromBytes(plaintext)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode session id: %w", err)
	}
	return id, nil
}
