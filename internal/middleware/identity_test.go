package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/orbit-crm/orbit-server/internal/kvstore"
	"github.com/orbit-crm/orbit-server/internal/session"
)

func newIdentityApp(t *testing.T, legacy bool) (*fiber.App, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(kvstore.NewMemory(), 30*24*time.Hour, 7*24*time.Hour)

	app := fiber.New()
	app.Get("/user", UserAuth(sessions, legacy), func(c *fiber.Ctx) error {
		phone, _ := CurrentUserPhone(c)
		return c.JSON(fiber.Map{"phone": phone})
	})
	app.Get("/admin", AdminAuth(sessions), RequireRole("admin", "manager"), func(c *fiber.Ctx) error {
		username, role, _ := CurrentAdmin(c)
		return c.JSON(fiber.Map{"username": username, "role": role})
	})
	return app, sessions
}

func TestUserAuthBearerToken(t *testing.T) {
	app, sessions := newIdentityApp(t, false)
	tok, err := sessions.CreateUser(context.Background(), "79001112233")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/user", nil)
	req.Header.Set(HeaderUserAuth, "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
}

func TestUserAuthRejectsMissingAndBogusTokens(t *testing.T) {
	app, _ := newIdentityApp(t, false)

	resp, err := app.Test(httptest.NewRequest("GET", "/user", nil))
	require.NoError(t, err)
	require.Equal(t, 401, resp.StatusCode)

	req := httptest.NewRequest("GET", "/user", nil)
	req.Header.Set(HeaderUserAuth, "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 401, resp.StatusCode)
}

func TestLegacyPhoneHeaderDisabledByDefault(t *testing.T) {
	app, _ := newIdentityApp(t, false)

	req := httptest.NewRequest("GET", "/user", nil)
	req.Header.Set(HeaderUserPhone, "79001112233")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 401, resp.StatusCode)
}

func TestLegacyPhoneHeaderWhenEnabled(t *testing.T) {
	app, _ := newIdentityApp(t, true)

	req := httptest.NewRequest("GET", "/user", nil)
	req.Header.Set(HeaderUserPhone, "79001112233")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	// The bearer path still wins over the legacy header.
	req = httptest.NewRequest("GET", "/user", nil)
	req.Header.Set(HeaderUserAuth, "Bearer bogus")
	req.Header.Set(HeaderUserPhone, "79001112233")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 401, resp.StatusCode)
}

func TestAdminAuthAndRoleGate(t *testing.T) {
	app, sessions := newIdentityApp(t, false)

	adminTok, err := sessions.CreateAdmin(context.Background(), "root", "admin")
	require.NoError(t, err)
	analystTok, err := sessions.CreateAdmin(context.Background(), "ana", "analyst")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(HeaderAdminAuth, "Bearer "+adminTok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	// Wrong role is forbidden, not unauthenticated.
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(HeaderAdminAuth, "Bearer "+analystTok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 403, resp.StatusCode)

	// No admin fallback to user headers.
	userTok, err := sessions.CreateUser(context.Background(), "79001112233")
	require.NoError(t, err)
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(HeaderAdminAuth, "Bearer "+userTok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 401, resp.StatusCode)
}
