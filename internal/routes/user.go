package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/orbit-crm/orbit-server/internal/middleware"
	"github.com/orbit-crm/orbit-server/internal/session"
)

// RegisterUserRoutes wires the authenticated user surface: identity echo and
// logout.
func RegisterUserRoutes(r fiber.Router, sessions *session.Manager, userAuth fiber.Handler) {
	r.Get("/me", userAuth, func(c *fiber.Ctx) error {
		phone, ok := middleware.CurrentUserPhone(c)
		if !ok {
			return c.SendStatus(http.StatusUnauthorized)
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"phone": phone})
	})

	r.Post("/auth/logout", userAuth, func(c *fiber.Ctx) error {
		if tok := middleware.CurrentUserToken(c); tok != "" {
			if err := sessions.DeleteUser(c.UserContext(), tok); err != nil {
				return err
			}
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
	})
}
