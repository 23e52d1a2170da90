package kvstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value    string
	deadline time.Time
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates a concurrency-safe in-memory store useful for unit tests
// and for running the service without Redis or Postgres in development.
func NewMemory() Store {
	return &memoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// NewMemoryWithClock creates an in-memory store with an injectable clock so
// tests can cross TTL boundaries without sleeping.
func NewMemoryWithClock(now func() time.Time) Store {
	return &memoryStore{entries: make(map[string]memoryEntry), now: now}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	if !entry.deadline.IsZero() && s.now().After(entry.deadline) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.deadline = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) ListPrefix(_ context.Context, prefix string) (map[string]string, error) {
	now := s.now()
	out := make(map[string]string)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, entry := range s.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if !entry.deadline.IsZero() && now.After(entry.deadline) {
			continue
		}
		out[key] = entry.value
	}
	return out, nil
}
