package qrauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orbit-crm/orbit-server/internal/domain"
	"github.com/orbit-crm/orbit-server/internal/kvstore"
	"github.com/orbit-crm/orbit-server/internal/logging"
	"github.com/orbit-crm/orbit-server/internal/session"
)

type fixture struct {
	svc      *Service
	sessions *session.Manager
	now      *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Now().UTC()
	clock := func() time.Time { return now }
	store := kvstore.NewMemoryWithClock(clock)
	sessions := session.NewManager(store, 30*24*time.Hour, 7*24*time.Hour).WithClock(clock)
	svc := NewService(store, sessions, logging.Discard(), 5*time.Minute).
		WithClock(func() time.Time { return now })
	return &fixture{svc: svc, sessions: sessions, now: &now}
}

func TestHandshakeHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, StatusPending, created.Status)

	// Web client polls before the mobile confirms.
	result, err := f.svc.Check(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, result.Pending)
	require.Equal(t, created.ExpiresAt, result.ExpiresAt)

	require.NoError(t, f.svc.Confirm(ctx, created.ID, "79001112233"))

	result, err = f.svc.Check(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, result.Pending)
	require.Equal(t, "79001112233", result.Phone)
	require.NotEmpty(t, result.Token)

	// The minted token is a real, resolvable user session.
	sess, err := f.sessions.ResolveUser(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, "79001112233", sess.Phone)

	// Single use: a second poll finds nothing.
	_, err = f.svc.Check(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirmTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.Confirm(ctx, created.ID, "79001112233"))
	err = f.svc.Confirm(ctx, created.ID, "79004445566")
	require.ErrorIs(t, err, domain.ErrConflict)

	// The first confirmation survives untouched.
	result, err := f.svc.Check(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "79001112233", result.Phone)
}

func TestConfirmAfterReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.Reject(ctx, created.ID))
	require.ErrorIs(t, f.svc.Confirm(ctx, created.ID, "79001112233"), domain.ErrConflict)
}

func TestRejectedSessionIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, f.svc.Reject(ctx, created.ID))

	_, err = f.svc.Check(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrConflict)

	// Consumed on the terminal read.
	_, err = f.svc.Check(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExpiredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)

	*f.now = f.now.Add(6 * time.Minute)

	err = f.svc.Confirm(ctx, created.ID, "79001112233")
	// Memory and Redis backends drop the key with their own TTL, so either
	// kind is acceptable; the session must never confirm.
	require.True(t, errors.Is(err, domain.ErrExpired) || errors.Is(err, domain.ErrNotFound), "got %v", err)

	_, err = f.svc.Check(ctx, created.ID)
	require.True(t, errors.Is(err, domain.ErrExpired) || errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestUnknownAndEmptySessionIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Check(ctx, "does-not-exist")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.ErrorIs(t, f.svc.Confirm(ctx, "", "79001112233"), domain.ErrInvalidInput)
	require.ErrorIs(t, f.svc.Reject(ctx, "does-not-exist"), domain.ErrNotFound)
}

func TestEachConfirmationMintsFreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		created, err := f.svc.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, f.svc.Confirm(ctx, created.ID, "79001112233"))
		result, err := f.svc.Check(ctx, created.ID)
		require.NoError(t, err)
		require.False(t, seen[result.Token], "token reuse across confirmations")
		seen[result.Token] = true
	}
}
