package domain

import "errors"

// Error kinds shared across the auth subsystems. Handlers map these to HTTP
// status codes; services wrap them with request-specific context.
var (
	// ErrInvalidInput marks malformed caller input (bad phone, bad session id).
	// Rejected before any state mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a record that is absent or already consumed.
	ErrNotFound = errors.New("not found")

	// ErrExpired marks a record past its TTL; the record is deleted on detection.
	ErrExpired = errors.New("expired")

	// ErrConflict marks a QR session that was already confirmed or rejected.
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated marks a missing or invalid bearer credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden marks an authenticated caller holding the wrong role.
	ErrForbidden = errors.New("forbidden")

	// ErrUpstream marks a telephony gateway network or API failure. Surfaced
	// with provider detail, never retried automatically.
	ErrUpstream = errors.New("upstream failure")
)
