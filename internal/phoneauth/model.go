package phoneauth

import (
	"fmt"
	"strings"
	"time"

	"github.com/orbit-crm/orbit-server/internal/domain"
)

// Pending tracks one in-progress flash-call login. At most one live record
// exists per phone; a new request overwrites the key, never duplicates it.
type Pending struct {
	// UserPhone is the normalized identity being authenticated.
	UserPhone string `json:"user_phone"`
	// DisplayPhone is the callback number the user must dial. Empty until
	// either the synchronous gateway response or the first webhook fills it.
	DisplayPhone string `json:"display_phone,omitempty"`
	// CorrelationKey is the opaque value from the gateway's first webhook,
	// used to recognize the confirming second webhook.
	CorrelationKey string    `json:"correlation_key,omitempty"`
	Verified       bool      `json:"verified"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

const keyPrefix = "phoneauth:"

func recordKey(phone string) string { return keyPrefix + phone }

// NormalizePhone reduces raw input to an 11-digit national number: strips
// everything but digits, maps the leading "8" trunk prefix to "7" and pads
// bare 10-digit numbers.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	phone := digits.String()

	switch {
	case len(phone) == 11 && phone[0] == '8':
		phone = "7" + phone[1:]
	case len(phone) == 10:
		phone = "7" + phone
	}

	if len(phone) != 11 {
		return "", fmt.Errorf("%w: phone must normalize to 11 digits", domain.ErrInvalidInput)
	}
	return phone, nil
}
