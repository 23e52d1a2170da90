package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/orbit-crm/orbit-server/internal/domain"
	"github.com/orbit-crm/orbit-server/internal/kvstore"
	"github.com/orbit-crm/orbit-server/internal/session"
)

// errInvalidCredentials covers every login failure: callers can never tell
// an unknown username from a wrong password. Detail goes to the server log.
var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)

// Bootstrap holds the default-admin provisioning secrets. All three fields
// must be set for admin auth to be enabled at all.
type Bootstrap struct {
	Secret   string
	Username string
	Password string
}

func (b Bootstrap) complete() bool {
	return b.Secret != "" && b.Username != "" && b.Password != ""
}

// Service owns admin credentials, role records and admin login.
type Service struct {
	store     kvstore.Store
	sessions  *session.Manager
	hasher    *Hasher
	logger    *slog.Logger
	bootstrap Bootstrap
	now       func() time.Time
}

// NewService builds the admin service. When the bootstrap triple is
// incomplete the service stays disabled and every operation refuses.
func NewService(store kvstore.Store, sessions *session.Manager, logger *slog.Logger, bootstrap Bootstrap) *Service {
	return &Service{
		store:     store,
		sessions:  sessions,
		hasher:    NewHasher(bootstrap.Secret),
		logger:    logger,
		bootstrap: bootstrap,
		now:       time.Now,
	}
}

// Enabled reports whether admin auth is configured.
func (s *Service) Enabled() bool {
	return s.bootstrap.complete()
}

// EnsureDefaultAdmin idempotently provisions the bootstrap account. An
// existing record under the default username is never overwritten, so
// password and role changes made through the management API survive
// restarts.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Warn("admin auth disabled: bootstrap secrets not configured")
		return nil
	}
	if _, err := s.loadRecord(ctx, s.bootstrap.Username); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	record := Record{
		Username:     s.bootstrap.Username,
		PasswordHash: s.hasher.Hash(s.bootstrap.Password),
		Role:         RoleAdmin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.saveRecord(ctx, record); err != nil {
		return err
	}
	s.logger.Info("default admin provisioned", "username", record.Username)
	return nil
}

// VerifyPassword checks a credential pair. Every failure is the same
// generic unauthenticated error; the digest is computed even for unknown
// usernames so the two failures are not distinguishable by timing.
func (s *Service) VerifyPassword(ctx context.Context, username, password string) (Record, error) {
	if !s.Enabled() {
		return Record{}, errInvalidCredentials
	}

	record, err := s.loadRecord(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.hasher.Verify(password, "") // burn the same work as the real path
			s.logger.Warn("admin login for unknown username", "username", username)
			return Record{}, errInvalidCredentials
		}
		return Record{}, err
	}

	if !s.hasher.Verify(password, record.PasswordHash) {
		s.logger.Warn("admin login with wrong password", "username", username)
		return Record{}, errInvalidCredentials
	}
	return record, nil
}

// Login verifies credentials and mints an admin session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, Record, error) {
	record, err := s.VerifyPassword(ctx, username, password)
	if err != nil {
		return "", Record{}, err
	}
	tok, err := s.sessions.CreateAdmin(ctx, record.Username, record.Role)
	if err != nil {
		return "", Record{}, err
	}
	s.logger.Info("admin logged in", "username", record.Username, "role", record.Role)
	return tok, record, nil
}

// Create adds a new admin account.
func (s *Service) Create(ctx context.Context, username, password, role string) (Record, error) {
	if err := ValidateUsername(username); err != nil {
		return Record{}, err
	}
	if err := ValidateRole(role); err != nil {
		return Record{}, err
	}
	if password == "" {
		return Record{}, fmt.Errorf("%w: empty password", domain.ErrInvalidInput)
	}
	if _, err := s.loadRecord(ctx, username); err == nil {
		return Record{}, fmt.Errorf("%w: username taken", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return Record{}, err
	}

	record := Record{
		Username:     username,
		PasswordHash: s.hasher.Hash(password),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.saveRecord(ctx, record); err != nil {
		return Record{}, err
	}
	s.logger.Info("admin account created", "username", username, "role", role)
	return record, nil
}

// List returns every admin record sorted by username. Password hashes stay
// inside the package; callers see username, role and creation time.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	raw, err := s.store.ListPrefix(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list admin records: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for key, value := range raw {
		var record Record
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			s.logger.Warn("skipping undecodable admin record", "key", key, "error", err)
			continue
		}
		record.PasswordHash = ""
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Username < records[j].Username })
	return records, nil
}

// SetPassword replaces the stored digest for username.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty password", domain.ErrInvalidInput)
	}
	record, err := s.loadRecord(ctx, username)
	if err != nil {
		return err
	}
	record.PasswordHash = s.hasher.Hash(password)
	if err := s.saveRecord(ctx, record); err != nil {
		return err
	}
	s.logger.Info("admin password changed", "username", username)
	return nil
}

// SetRole replaces the stored role for username.
func (s *Service) SetRole(ctx context.Context, username, role string) error {
	if err := ValidateRole(role); err != nil {
		return err
	}
	record, err := s.loadRecord(ctx, username)
	if err != nil {
		return err
	}
	record.Role = role
	if err := s.saveRecord(ctx, record); err != nil {
		return err
	}
	s.logger.Info("admin role changed", "username", username, "role", role)
	return nil
}

// Delete removes an admin account. The bootstrap account cannot be deleted;
// it would be re-provisioned on the next start anyway.
func (s *Service) Delete(ctx context.Context, username string) error {
	if username == s.bootstrap.Username {
		return fmt.Errorf("%w: cannot delete the bootstrap admin", domain.ErrConflict)
	}
	if _, err := s.loadRecord(ctx, username); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, recordKey(username)); err != nil {
		return fmt.Errorf("delete admin record: %w", err)
	}
	s.logger.Info("admin account deleted", "username", username)
	return nil
}

func (s *Service) loadRecord(ctx context.Context, username string) (Record, error) {
	raw, err := s.store.Get(ctx, recordKey(username))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Record{}, domain.ErrNotFound
		}
		return Record{}, fmt.Errorf("load admin record: %w", err)
	}
	var record Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return Record{}, fmt.Errorf("decode admin record: %w", err)
	}
	return record, nil
}

func (s *Service) saveRecord(ctx context.Context, record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode admin record: %w", err)
	}
	if err := s.store.Set(ctx, recordKey(record.Username), string(payload), 0); err != nil {
		return fmt.Errorf("store admin record: %w", err)
	}
	return nil
}
