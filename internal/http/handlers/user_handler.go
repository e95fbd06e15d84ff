package handlers

import (
	"errors"

	"gatekeeper/internal/domain"
	applog "gatekeeper/internal/log"
	"gatekeeper/internal/services"
	"gatekeeper/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// UserHandler serves the admin-only account endpoints.
type UserHandler struct {
	Auth *services.AuthService
}

// POST /api/users
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var in validate.Account
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	u, err := h.Auth.CreateByAdmin(c.UserContext(), currentUser(c), in)
	if err != nil {
		errorStatus(c, err)
		applog.Security(c, "admin.users.create.fail", map[string]any{"email": validate.Email(in.Email), "reason": reason(err)})
		return writeError(c, err)
	}
	applog.Audit(c, "admin.users.create", map[string]any{"email": u.Email, "user": u.ID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "user created", "id": u.ID})
}

// PATCH /api/users/:id/approve
func (h *UserHandler) Approve(c *fiber.Ctx) error {
	id := c.Params("id")
	u, err := h.Auth.Approve(c.UserContext(), currentUser(c), id)
	if err != nil {
		errorStatus(c, err)
		if !errors.Is(err, domain.ErrUserNotFound) {
			applog.Error(c, "admin.users.approve.fail", err, map[string]any{"user": id})
		}
		return writeError(c, err)
	}
	applog.Audit(c, "admin.users.approve", map[string]any{"user": u.ID, "email": u.Email})
	return c.JSON(fiber.Map{"message": "user approved", "user": u})
}

// GET /api/users/pending
func (h *UserHandler) Pending(c *fiber.Ctx) error {
	users, err := h.Auth.PendingUsers(c.UserContext(), currentUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}
