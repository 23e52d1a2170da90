package admin

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/orbit-crm/orbit-server/internal/middleware"
	"github.com/orbit-crm/orbit-server/internal/session"
)

// Handler exposes admin login and account management endpoints.
type Handler struct {
	svc      *Service
	sessions *session.Manager
}

// NewHandler builds the admin HTTP handler.
func NewHandler(svc *Service, sessions *session.Manager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid body")
	}
	tok, record, err := h.svc.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"token":    tok,
		"username": record.Username,
		"role":     record.Role,
	})
}

// Logout revokes the caller's admin session.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if tok := middleware.CurrentAdminToken(c); tok != "" {
		if err := h.sessions.DeleteAdmin(c.UserContext(), tok); err != nil {
			return err
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// Me reports the caller's admin identity.
func (h *Handler) Me(c *fiber.Ctx) error {
	username, role, ok := middleware.CurrentAdmin(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthenticated")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"username": username, "role": role})
}

// List returns all admin accounts, hashes excluded.
func (h *Handler) List(c *fiber.Ctx) error {
	records, err := h.svc.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(records))
	for _, record := range records {
		out = append(out, fiber.Map{
			"username":   record.Username,
			"role":       record.Role,
			"created_at": record.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"admins": out})
}

type createRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create adds a new admin account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid body")
	}
	record, err := h.svc.Create(c.UserContext(), req.Username, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"username": record.Username,
		"role":     record.Role,
	})
}

type passwordRequest struct {
	Password string `json:"password"`
}

// SetPassword rotates an account's password.
func (h *Handler) SetPassword(c *fiber.Ctx) error {
	var req passwordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := h.svc.SetPassword(c.UserContext(), c.Params("username"), req.Password); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "updated"})
}

type roleRequest struct {
	Role string `json:"role"`
}

// SetRole changes an account's role.
func (h *Handler) SetRole(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid body")
	}
	if err := h.svc.SetRole(c.UserContext(), c.Params("username"), req.Role); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "updated"})
}

// Delete removes an admin account.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), c.Params("username")); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "deleted"})
}
