package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/orbit-crm/orbit-server/internal/domain"
	"github.com/orbit-crm/orbit-server/internal/kvstore"
	"github.com/orbit-crm/orbit-server/internal/token"
)

// Manager issues, resolves and revokes bearer-token sessions for end users
// and admins. Tokens are opaque random strings used as store keys; expiry is
// checked lazily on resolve and stale records are deleted when detected.
type Manager struct {
	store    kvstore.Store
	userTTL  time.Duration
	adminTTL time.Duration
	now      func() time.Time
}

// NewManager builds a session manager over the provided store.
func NewManager(store kvstore.Store, userTTL, adminTTL time.Duration) *Manager {
	return &Manager{store: store, userTTL: userTTL, adminTTL: adminTTL, now: time.Now}
}

// WithClock overrides the manager clock. Tests only.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// CreateUser mints a session token bound to phone.
func (m *Manager) CreateUser(ctx context.Context, phone string) (string, error) {
	tok, err := token.New()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	now := m.now().UTC()
	record := UserSession{Phone: phone, CreatedAt: now, ExpiresAt: now.Add(m.userTTL)}
	if err := m.put(ctx, userKey(tok), record, m.userTTL); err != nil {
		return "", err
	}
	return tok, nil
}

// CreateAdmin mints a session token bound to an admin username and role.
func (m *Manager) CreateAdmin(ctx context.Context, username, role string) (string, error) {
	tok, err := token.New()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	now := m.now().UTC()
	record := AdminSession{Username: username, Role: role, CreatedAt: now, ExpiresAt: now.Add(m.adminTTL)}
	if err := m.put(ctx, adminKey(tok), record, m.adminTTL); err != nil {
		return "", err
	}
	return tok, nil
}

// ResolveUser returns the session bound to tok. Absent or expired tokens
// resolve to domain.ErrUnauthenticated; expired records are removed.
func (m *Manager) ResolveUser(ctx context.Context, tok string) (UserSession, error) {
	var record UserSession
	if err := m.get(ctx, userKey(tok), &record); err != nil {
		return UserSession{}, err
	}
	if m.now().After(record.ExpiresAt) {
		_ = m.store.Delete(ctx, userKey(tok))
		return UserSession{}, domain.ErrUnauthenticated
	}
	record.Token = tok
	return record, nil
}

// ResolveAdmin returns the admin session bound to tok, with the same expiry
// semantics as ResolveUser.
func (m *Manager) ResolveAdmin(ctx context.Context, tok string) (AdminSession, error) {
	var record AdminSession
	if err := m.get(ctx, adminKey(tok), &record); err != nil {
		return AdminSession{}, err
	}
	if m.now().After(record.ExpiresAt) {
		_ = m.store.Delete(ctx, adminKey(tok))
		return AdminSession{}, domain.ErrUnauthenticated
	}
	record.Token = tok
	return record, nil
}

// DeleteUser removes a user session unconditionally. Used for logout.
func (m *Manager) DeleteUser(ctx context.Context, tok string) error {
	return m.store.Delete(ctx, userKey(tok))
}

// DeleteAdmin removes an admin session unconditionally.
func (m *Manager) DeleteAdmin(ctx context.Context, tok string) error {
	return m.store.Delete(ctx, adminKey(tok))
}

func (m *Manager) put(ctx context.Context, key string, record any, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, key, string(payload), ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (m *Manager) get(ctx context.Context, key string, record any) error {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return domain.ErrUnauthenticated
		}
		return fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), record); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	return nil
}
