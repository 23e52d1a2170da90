package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres builds a Postgres-backed store over a single kv table. Expiry
// is lazy: stale rows are filtered on read and removed when encountered.
func NewPostgres(db *pgxpool.Pool) Store {
	return &postgresStore{db: db}
}

// EnsureSchema creates the kv table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS kv (
        key        TEXT PRIMARY KEY,
        value      TEXT NOT NULL,
        expires_at TIMESTAMPTZ
    )`)
	if err != nil {
		return fmt.Errorf("ensure kv schema: %w", err)
	}
	return nil
}

func (s *postgresStore) Get(ctx context.Context, key string) (string, error) {
	row := s.db.QueryRow(ctx, `SELECT value, expires_at FROM kv WHERE key = $1`, key)
	var (
		value     string
		expiresAt *time.Time
	)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("kv get %q: %w", key, err)
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		_, _ = s.db.Exec(ctx, `DELETE FROM kv WHERE key = $1`, key)
		return "", ErrNotFound
	}
	return value, nil
}

func (s *postgresStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl).UTC()
		expiresAt = &t
	}
	_, err := s.db.Exec(ctx, `INSERT INTO kv (key, value, expires_at) VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

func (s *postgresStore) ListPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key, value FROM kv
         WHERE key LIKE $1 || '%' AND (expires_at IS NULL OR expires_at > now())`, prefix)
	if err != nil {
		return nil, fmt.Errorf("kv list %q: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("kv list scan: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv list rows: %w", err)
	}
	return out, nil
}
