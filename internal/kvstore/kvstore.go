package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or its value has expired.
var ErrNotFound = errors.New("key not found")

// Store is the durable string-keyed storage every auth component writes its
// state through. There are no transactions; callers use read-then-write
// sequences and accept last-writer-wins on a contended key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// Set writes value under key. A zero ttl means the value never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// ListPrefix returns every live key/value pair whose key starts with prefix.
	ListPrefix(ctx context.Context, prefix string) (map[string]string, error)
}
