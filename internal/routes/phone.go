package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/orbit-crm/orbit-server/internal/phoneauth"
)

// RegisterPhoneAuthRoutes wires the flash-call endpoints. The webhook is
// never rate limited: throttling the gateway would lose confirmations.
func RegisterPhoneAuthRoutes(r fiber.Router, h *phoneauth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth/phone")
	if rateLimiter != nil {
		group.Post("/request", rateLimiter, h.RequestCall)
	} else {
		group.Post("/request", h.RequestCall)
	}
	group.Post("/status", h.CheckStatus)
	group.Post("/webhook", h.Webhook)
}
