package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/orbit-crm/orbit-server/internal/admin"
	"github.com/orbit-crm/orbit-server/internal/middleware"
)

// RegisterAdminRoutes wires admin login and account management. When the
// bootstrap secrets are absent the whole surface answers 404, so a
// misconfigured deployment exposes nothing.
func RegisterAdminRoutes(r fiber.Router, h *admin.Handler, svc *admin.Service, adminAuth, loginLimiter fiber.Handler) {
	group := r.Group("/admin", func(c *fiber.Ctx) error {
		if !svc.Enabled() {
			return c.SendStatus(http.StatusNotFound)
		}
		return c.Next()
	})

	if loginLimiter != nil {
		group.Post("/login", loginLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/logout", adminAuth, h.Logout)
	group.Get("/me", adminAuth, h.Me)

	// Management: admins and managers mutate; analysts may read the list.
	accounts := group.Group("/admins", adminAuth)
	accounts.Get("/", middleware.RequireRole(admin.RoleAdmin, admin.RoleManager, admin.RoleAnalyst), h.List)

	manage := middleware.RequireRole(admin.RoleAdmin, admin.RoleManager)
	accounts.Post("/", manage, h.Create)
	accounts.Put("/:username/password", manage, h.SetPassword)
	accounts.Put("/:username/role", manage, h.SetRole)
	accounts.Delete("/:username", manage, h.Delete)
}
