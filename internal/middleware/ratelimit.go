package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimit caps requests per derived key inside a rolling window, using
// Redis counters when available. Without Redis, and on cache errors, it
// fails open: losing a throttle beats losing logins.
func RateLimit(cache *redis.Client, name string, maxPerWindow int, window time.Duration, keyFn func(*fiber.Ctx) string) fiber.Handler {
	if maxPerWindow <= 0 {
		maxPerWindow = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := keyFn(c)
		if subject == "" {
			subject = c.IP()
		}
		key := "rl:" + name + ":" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, window)
		}
		if err != nil {
			return c.Next()
		}
		if cnt > int64(maxPerWindow) {
			return fiber.NewError(http.StatusTooManyRequests, "too many attempts, try again later")
		}
		return c.Next()
	}
}

// BodyField returns a key function that pulls a JSON body field, falling
// back to the client IP when the field is absent.
func BodyField(field string) func(*fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		var body map[string]string
		if err := c.BodyParser(&body); err != nil {
			return ""
		}
		return body[field]
	}
}
