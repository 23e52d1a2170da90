package admin

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashIterations = 4096
	hashSize       = 32
)

// Hasher derives fixed-length password digests salted with the deployment
// secret. Digests are deterministic, so verification is a recompute plus a
// constant-time comparison.
type Hasher struct {
	secret []byte
}

// NewHasher builds a hasher over the deployment secret.
func NewHasher(secret string) *Hasher {
	return &Hasher{secret: []byte(secret)}
}

// Hash returns the hex-encoded digest of password.
func (h *Hasher) Hash(password string) string {
	digest := pbkdf2.Key([]byte(password), h.secret, hashIterations, hashSize, sha256.New)
	return hex.EncodeToString(digest)
}

// Verify reports whether password matches storedHex. The comparison runs
// over fixed-length digests, so it takes the same time for every password
// length and never exits early.
func (h *Hasher) Verify(password, storedHex string) bool {
	stored, err := hex.DecodeString(storedHex)
	if err != nil || len(stored) != hashSize {
		return false
	}
	digest := pbkdf2.Key([]byte(password), h.secret, hashIterations, hashSize, sha256.New)
	return subtle.ConstantTimeCompare(digest, stored) == 1
}
