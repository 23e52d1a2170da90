package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLimitedApp(t *testing.T, cache *redis.Client, max int) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Post("/login", RateLimit(cache, "login", max, time.Minute, BodyField("username")), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func postLogin(t *testing.T, app *fiber.App, username string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"`+username+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRateLimitCapsPerSubject(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := newLimitedApp(t, cache, 3)

	for i := 0; i < 3; i++ {
		require.Equal(t, 200, postLogin(t, app, "root"))
	}
	require.Equal(t, 429, postLogin(t, app, "root"))

	// Another subject has its own counter.
	require.Equal(t, 200, postLogin(t, app, "other"))
}

func TestRateLimitWindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := newLimitedApp(t, cache, 1)

	require.Equal(t, 200, postLogin(t, app, "root"))
	require.Equal(t, 429, postLogin(t, app, "root"))

	mr.FastForward(2 * time.Minute)
	require.Equal(t, 200, postLogin(t, app, "root"))
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	app := newLimitedApp(t, nil, 1)

	for i := 0; i < 5; i++ {
		require.Equal(t, 200, postLogin(t, app, "root"))
	}
}
