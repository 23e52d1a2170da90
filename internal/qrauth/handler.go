package qrauth

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/orbit-crm/orbit-server/internal/middleware"
)

// Handler exposes the QR handshake endpoints.
type Handler struct {
	svc *Service
	// baseURL is embedded in the QR payload so the confirming app knows
	// which backend to call.
	baseURL string
}

// NewHandler builds the QR auth HTTP handler.
func NewHandler(svc *Service, baseURL string) *Handler {
	return &Handler{svc: svc, baseURL: baseURL}
}

// Create opens a new pending web login. No auth: the web client has none yet.
func (h *Handler) Create(c *fiber.Ctx) error {
	record, err := h.svc.Create(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"session_id": record.ID,
		"url":        h.deepLink(record.ID),
		"expires_at": record.ExpiresAt,
	})
}

// Check is polled by the web client until the session settles.
func (h *Handler) Check(c *fiber.Ctx) error {
	result, err := h.svc.Check(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if result.Pending {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "pending",
			"expires_at": result.ExpiresAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status": "ok",
		"token":  result.Token,
		"phone":  result.Phone,
	})
}

// Confirm is called by the authenticated mobile client after scanning.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	phone, ok := middleware.CurrentUserPhone(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	if err := h.svc.Confirm(c.UserContext(), c.Params("id"), phone); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "confirmed"})
}

// Reject settles the session negatively. No auth: the prompt is shown to
// whoever scanned the code, authenticated or not.
func (h *Handler) Reject(c *fiber.Ctx) error {
	if err := h.svc.Reject(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "rejected"})
}

func (h *Handler) deepLink(id string) string {
	return fmt.Sprintf("orbit://auth/qr?session=%s&api=%s", id, url.QueryEscape(h.baseURL))
}
