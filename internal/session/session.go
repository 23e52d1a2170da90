package session

import "time"

// UserSession binds a bearer token to a phone identity.
type UserSession struct {
	Token     string    `json:"-"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminSession binds a bearer token to an admin username and role.
type AdminSession struct {
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

const (
	userKeyPrefix  = "session:user:"
	adminKeyPrefix = "session:admin:"
)

func userKey(token string) string  { return userKeyPrefix + token }
func adminKey(token string) string { return adminKeyPrefix + token }
