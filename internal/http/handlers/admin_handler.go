package handlers

import (
	applog "gatekeeper/internal/log"
	"gatekeeper/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Auth *services.AuthService
}

// GET /admin/pending
func (h *AdminHandler) PendingPage(c *fiber.Ctx) error {
	users, err := h.Auth.PendingUsers(c.UserContext(), currentUser(c))
	if err != nil {
		applog.Error(c, "admin.pending.list.fail", err, nil)
		return writeError(c, err)
	}
	return render(c, "pending", fiber.Map{"Users": users})
}
