package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	sessionTokenSize = 32
	sessionIDSize    = 24
)

// New returns an opaque bearer token with 256 bits of entropy, encoded as
// unpadded base64url so it is safe in headers and URLs.
func New() (string, error) {
	return random(sessionTokenSize)
}

// NewID returns a shorter identifier for QR sessions, still far beyond
// guessable (192 bits).
func NewID() (string, error) {
	return random(sessionIDSize)
}

func random(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
