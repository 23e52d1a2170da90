package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/orbit-crm/orbit-server/internal/session"
)

// Caller identity headers. x-user-auth and x-admin-auth carry bearer
// tokens; x-user-phone is a legacy claimed-identity header accepted only
// when the compatibility flag is on.
const (
	HeaderUserAuth  = "x-user-auth"
	HeaderUserPhone = "x-user-phone"
	HeaderAdminAuth = "x-admin-auth"
)

const (
	userPhoneKey  = "auth:user_phone"
	userTokenKey  = "auth:user_token"
	adminUserKey  = "auth:admin_username"
	adminRoleKey  = "auth:admin_role"
	adminTokenKey = "auth:admin_token"
)

// unauthenticated is the single message every identity failure produces, so
// callers cannot probe which part was wrong.
func unauthenticated() error {
	return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
}

func bearer(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// UserAuth resolves the calling user. A bearer token in x-user-auth is the
// preferred path; when legacyPhoneHeader is enabled a bare x-user-phone
// header is trusted as-is for old clients.
func UserAuth(sessions *session.Manager, legacyPhoneHeader bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tok := bearer(c.Get(HeaderUserAuth)); tok != "" {
			sess, err := sessions.ResolveUser(c.UserContext(), tok)
			if err != nil {
				return unauthenticated()
			}
			c.Locals(userPhoneKey, sess.Phone)
			c.Locals(userTokenKey, tok)
			return c.Next()
		}

		if legacyPhoneHeader {
			if phone := strings.TrimSpace(c.Get(HeaderUserPhone)); phone != "" {
				c.Locals(userPhoneKey, phone)
				return c.Next()
			}
		}

		return unauthenticated()
	}
}

// AdminAuth resolves the calling admin from x-admin-auth. There is no
// fallback path for admins.
func AdminAuth(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := bearer(c.Get(HeaderAdminAuth))
		if tok == "" {
			return unauthenticated()
		}
		sess, err := sessions.ResolveAdmin(c.UserContext(), tok)
		if err != nil {
			return unauthenticated()
		}
		c.Locals(adminUserKey, sess.Username)
		c.Locals(adminRoleKey, sess.Role)
		c.Locals(adminTokenKey, tok)
		return c.Next()
	}
}

// RequireRole gates a route group to the listed admin roles. Must run after
// AdminAuth.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(adminRoleKey).(string)
		if !allowed[role] {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// CurrentUserPhone returns the authenticated user's phone, if any.
func CurrentUserPhone(c *fiber.Ctx) (string, bool) {
	phone, ok := c.Locals(userPhoneKey).(string)
	return phone, ok && phone != ""
}

// CurrentUserToken returns the bearer token the user authenticated with.
// Empty on the legacy phone-header path.
func CurrentUserToken(c *fiber.Ctx) string {
	tok, _ := c.Locals(userTokenKey).(string)
	return tok
}

// CurrentAdmin returns the authenticated admin's username and role.
func CurrentAdmin(c *fiber.Ctx) (username, role string, ok bool) {
	username, _ = c.Locals(adminUserKey).(string)
	role, _ = c.Locals(adminRoleKey).(string)
	return username, role, username != ""
}

// CurrentAdminToken returns the bearer token the admin authenticated with.
func CurrentAdminToken(c *fiber.Ctx) string {
	tok, _ := c.Locals(adminTokenKey).(string)
	return tok
}
