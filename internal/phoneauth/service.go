package phoneauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/orbit-crm/orbit-server/internal/domain"
	"github.com/orbit-crm/orbit-server/internal/kvstore"
	"github.com/orbit-crm/orbit-server/internal/seed"
	"github.com/orbit-crm/orbit-server/internal/session"
	"github.com/orbit-crm/orbit-server/internal/telephony"
)

const seededKeyPrefix = "seeded:"

// Options tunes the state machine.
type Options struct {
	// TTL bounds the life of a pending record.
	TTL time.Duration
	// Throttle is the anti-spam window: a repeat request inside it reuses
	// the existing record instead of issuing another gateway call.
	Throttle time.Duration
	// TestPhone bypasses the gateway and verifies immediately. Empty
	// disables the bypass.
	TestPhone string
	// WebhookURL is handed to the gateway on every call request.
	WebhookURL string
}

// Service owns the reverse flash-call protocol: request creation, webhook
// ingestion, status polling, expiry and throttling.
type Service struct {
	store    kvstore.Store
	gateway  telephony.Gateway
	sessions *session.Manager
	seeder   seed.Seeder
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
}

// NewService builds the phone auth service.
func NewService(store kvstore.Store, gateway telephony.Gateway, sessions *session.Manager, seeder seed.Seeder, logger *slog.Logger, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Throttle <= 0 {
		opts.Throttle = time.Minute
	}
	return &Service{
		store:    store,
		gateway:  gateway,
		sessions: sessions,
		seeder:   seeder,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RequestResult is the answer to a call request.
type RequestResult struct {
	// CallbackNumber the user must dial. May be empty when the provider
	// only reveals it through the first webhook.
	CallbackNumber string
	// RetryAfter is positive when the request was throttled against an
	// existing live record.
	RetryAfter time.Duration
	// Verified is true only on the test-phone bypass.
	Verified bool
	ExpiresAt time.Time
}

// RequestCall normalizes phone and starts (or reuses) a pending login.
func (s *Service) RequestCall(ctx context.Context, rawPhone string) (RequestResult, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return RequestResult{}, err
	}
	now := s.now().UTC()

	if existing, err := s.load(ctx, phone); err == nil {
		if age := now.Sub(existing.CreatedAt); age < s.opts.Throttle {
			s.logger.Info("call request throttled", "phone", phone, "age", age)
			return RequestResult{
				CallbackNumber: existing.DisplayPhone,
				RetryAfter:     s.opts.Throttle - age,
				Verified:       existing.Verified,
				ExpiresAt:      existing.ExpiresAt,
			}, nil
		}
	}

	record := Pending{
		UserPhone: phone,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.TTL),
	}

	if s.opts.TestPhone != "" && phone == s.opts.TestPhone {
		// Store-review path: no gateway involved, verified on the spot.
		record.Verified = true
		if err := s.save(ctx, record); err != nil {
			return RequestResult{}, err
		}
		s.logger.Info("test phone verified without gateway", "phone", phone)
		return RequestResult{Verified: true, ExpiresAt: record.ExpiresAt}, nil
	}

	call, err := s.gateway.RequestCall(ctx, phone, s.opts.WebhookURL)
	if err != nil {
		s.logger.Error("gateway call request failed", "phone", phone, "error", err)
		return RequestResult{}, err
	}
	record.DisplayPhone = call.CallbackNumber
	record.CorrelationKey = call.RequestID

	if err := s.save(ctx, record); err != nil {
		return RequestResult{}, err
	}
	s.logger.Info("call requested", "phone", phone, "callback_number", record.DisplayPhone)
	return RequestResult{CallbackNumber: record.DisplayPhone, ExpiresAt: record.ExpiresAt}, nil
}

// Status is the answer to a poll.
type Status struct {
	// Waiting is true while the record is live and unverified.
	Waiting        bool
	CallbackNumber string
	// Token is set once, when verification is consumed.
	Token     string
	Phone     string
	ExpiresAt time.Time
}

// CheckStatus resolves the current state for phone. A verified record is
// consumed: deleted, exchanged for a session token and seeded once.
func (s *Service) CheckStatus(ctx context.Context, rawPhone string) (Status, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return Status{}, err
	}

	record, err := s.load(ctx, phone)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Status{}, domain.ErrNotFound
		}
		return Status{}, err
	}

	if s.now().After(record.ExpiresAt) {
		_ = s.store.Delete(ctx, recordKey(phone))
		return Status{}, domain.ErrExpired
	}

	if !record.Verified {
		return Status{Waiting: true, CallbackNumber: record.DisplayPhone, ExpiresAt: record.ExpiresAt}, nil
	}

	if err := s.store.Delete(ctx, recordKey(phone)); err != nil {
		return Status{}, fmt.Errorf("consume pending record: %w", err)
	}

	tok, err := s.sessions.CreateUser(ctx, phone)
	if err != nil {
		return Status{}, err
	}

	s.seedOnce(ctx, phone)

	s.logger.Info("phone verified", "phone", phone)
	return Status{Token: tok, Phone: phone}, nil
}

// seedOnce fires demo-data seeding the first time a phone authenticates.
// Failures are logged and never fail the login.
func (s *Service) seedOnce(ctx context.Context, phone string) {
	if s.seeder == nil {
		return
	}
	flagKey := seededKeyPrefix + phone
	if _, err := s.store.Get(ctx, flagKey); err == nil {
		return
	}
	if err := s.seeder.Seed(ctx, phone); err != nil {
		s.logger.Error("demo data seeding failed", "phone", phone, "error", err)
		return
	}
	if err := s.store.Set(ctx, flagKey, "1", 0); err != nil {
		s.logger.Error("persist seeded flag failed", "phone", phone, "error", err)
	}
}

func (s *Service) load(ctx context.Context, phone string) (Pending, error) {
	raw, err := s.store.Get(ctx, recordKey(phone))
	if err != nil {
		return Pending{}, err
	}
	var record Pending
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return Pending{}, fmt.Errorf("decode pending record: %w", err)
	}
	return record, nil
}

func (s *Service) save(ctx context.Context, record Pending) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode pending record: %w", err)
	}
	ttl := record.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.store.Set(ctx, recordKey(record.UserPhone), string(payload), ttl); err != nil {
		return fmt.Errorf("store pending record: %w", err)
	}
	return nil
}
