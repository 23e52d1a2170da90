package admin

import (
	"fmt"
	"strings"
	"time"

	"github.com/orbit-crm/orbit-server/internal/domain"
)

// Admin roles. Permission differences between them are enforced by the
// endpoints consuming the admin identity, not here.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAnalyst = "analyst"
)

// Record is the persisted credential and role for one admin username.
type Record struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

const keyPrefix = "admin:"

func recordKey(username string) string { return keyPrefix + username }

// ValidateRole rejects anything outside the fixed role set.
func ValidateRole(role string) error {
	switch role {
	case RoleAdmin, RoleManager, RoleAnalyst:
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
}

// ValidateUsername keeps usernames store-key safe.
func ValidateUsername(username string) error {
	if username == "" || len(username) > 64 || strings.ContainsAny(username, " :\n\t") {
		return fmt.Errorf("%w: invalid username", domain.ErrInvalidInput)
	}
	return nil
}
