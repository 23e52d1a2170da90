package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/orbit-crm/orbit-server/internal/qrauth"
)

// RegisterQrAuthRoutes wires the cross-device handshake. Only confirm needs
// an authenticated caller; create, poll and reject are unauthenticated.
func RegisterQrAuthRoutes(r fiber.Router, h *qrauth.Handler, userAuth fiber.Handler) {
	group := r.Group("/auth/qr")
	group.Post("/", h.Create)
	group.Get("/:id", h.Check)
	group.Post("/:id/confirm", userAuth, h.Confirm)
	group.Post("/:id/reject", h.Reject)
}
