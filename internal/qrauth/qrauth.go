package qrauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/orbit-crm/orbit-server/internal/domain"
	"github.com/orbit-crm/orbit-server/internal/kvstore"
	"github.com/orbit-crm/orbit-server/internal/session"
	"github.com/orbit-crm/orbit-server/internal/token"
)

// Session states. A record moves from pending to exactly one terminal state.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

// Session is one web-login attempt, created by the unauthenticated web
// client and settled once by a mobile client.
type Session struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Phone     string    `json:"phone,omitempty"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

const keyPrefix = "qrauth:"

func recordKey(id string) string { return keyPrefix + id }

// Service owns the cross-device handshake.
type Service struct {
	store    kvstore.Store
	sessions *session.Manager
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewService builds the QR auth service.
func NewService(store kvstore.Store, sessions *session.Manager, logger *slog.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{store: store, sessions: sessions, logger: logger, ttl: ttl, now: time.Now}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create stores a fresh pending session and returns it for embedding in a QR
// code or deep link. Callable without authentication.
func (s *Service) Create(ctx context.Context) (Session, error) {
	id, err := token.NewID()
	if err != nil {
		return Session{}, fmt.Errorf("generate qr session id: %w", err)
	}
	now := s.now().UTC()
	record := Session{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.save(ctx, record); err != nil {
		return Session{}, err
	}
	s.logger.Info("qr session created", "session_id", id)
	return record, nil
}

// Confirm transplants the authenticated mobile caller's identity onto the
// pending web login: a brand-new token is minted for phone and stored on the
// record. The record must still be pending.
func (s *Service) Confirm(ctx context.Context, id, phone string) error {
	record, err := s.loadLive(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != StatusPending {
		return fmt.Errorf("%w: session already %s", domain.ErrConflict, record.Status)
	}

	tok, err := s.sessions.CreateUser(ctx, phone)
	if err != nil {
		return err
	}
	record.Status = StatusConfirmed
	record.Phone = phone
	record.Token = tok
	if err := s.save(ctx, record); err != nil {
		return err
	}
	s.logger.Info("qr session confirmed", "session_id", id, "phone", phone)
	return nil
}

// Reject settles a pending session negatively. No auth required: the prompt
// is shown to whoever scanned the code.
func (s *Service) Reject(ctx context.Context, id string) error {
	record, err := s.loadLive(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != StatusPending {
		return fmt.Errorf("%w: session already %s", domain.ErrConflict, record.Status)
	}
	record.Status = StatusRejected
	if err := s.save(ctx, record); err != nil {
		return err
	}
	s.logger.Info("qr session rejected", "session_id", id)
	return nil
}

// CheckResult is the answer to a web-client poll.
type CheckResult struct {
	Pending   bool
	Phone     string
	Token     string
	ExpiresAt time.Time
}

// Check resolves a session for the polling web client. A confirmed session
// is consumed on first read; rejected and expired sessions are consumed and
// reported as terminal errors.
func (s *Service) Check(ctx context.Context, id string) (CheckResult, error) {
	record, err := s.loadLive(ctx, id)
	if err != nil {
		return CheckResult{}, err
	}

	switch record.Status {
	case StatusConfirmed:
		if err := s.store.Delete(ctx, recordKey(id)); err != nil {
			return CheckResult{}, fmt.Errorf("consume qr session: %w", err)
		}
		return CheckResult{Phone: record.Phone, Token: record.Token}, nil
	case StatusRejected:
		_ = s.store.Delete(ctx, recordKey(id))
		return CheckResult{}, fmt.Errorf("%w: session rejected", domain.ErrConflict)
	default:
		return CheckResult{Pending: true, ExpiresAt: record.ExpiresAt}, nil
	}
}

// loadLive fetches a record, consuming it when expired.
func (s *Service) loadLive(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, fmt.Errorf("%w: empty session id", domain.ErrInvalidInput)
	}
	raw, err := s.store.Get(ctx, recordKey(id))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Session{}, domain.ErrNotFound
		}
		return Session{}, fmt.Errorf("load qr session: %w", err)
	}
	var record Session
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return Session{}, fmt.Errorf("decode qr session: %w", err)
	}
	if s.now().After(record.ExpiresAt) {
		_ = s.store.Delete(ctx, recordKey(id))
		return Session{}, domain.ErrExpired
	}
	return record, nil
}

func (s *Service) save(ctx context.Context, record Session) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode qr session: %w", err)
	}
	ttl := record.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.store.Set(ctx, recordKey(record.ID), string(payload), ttl); err != nil {
		return fmt.Errorf("store qr session: %w", err)
	}
	return nil
}
