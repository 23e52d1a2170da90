package phoneauth

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the flash-call endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler builds the phone auth HTTP handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

// RequestCall starts (or reuses) a login attempt for a phone.
func (h *Handler) RequestCall(c *fiber.Ctx) error {
	var req phoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid body")
	}

	result, err := h.svc.RequestCall(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}

	if result.Verified {
		// Test-phone bypass: the client proceeds straight to the status poll.
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "verified"})
	}

	resp := fiber.Map{
		"status":          "waiting_call",
		"callback_number": result.CallbackNumber,
		"expires_at":      result.ExpiresAt,
	}
	if result.RetryAfter > 0 {
		resp["retry_after"] = int(result.RetryAfter.Seconds())
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// CheckStatus is polled by the client until the login settles.
func (h *Handler) CheckStatus(c *fiber.Ctx) error {
	var req phoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid body")
	}

	status, err := h.svc.CheckStatus(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}

	if status.Waiting {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":          "waiting_call",
			"callback_number": status.CallbackNumber,
			"expires_at":      status.ExpiresAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status": "ok",
		"token":  status.Token,
		"phone":  status.Phone,
	})
}

// Webhook ingests gateway callbacks. The gateway offers no retry contract
// and no useful error channel, so the answer is 200 no matter what; failed
// correlation is logged server-side only.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	event := ParseWebhook(c.Body(), c.Get(fiber.HeaderContentType))

	matched, err := h.svc.IngestWebhook(c.UserContext(), event)
	if err != nil {
		h.logger.Error("webhook ingestion failed", "error", err)
	} else if !matched {
		h.logger.Info("webhook dropped", "status", event.Status)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true})
}
