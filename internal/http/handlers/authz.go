package handlers

import (
	"errors"

	"gatekeeper/internal/domain"
	applog "gatekeeper/internal/log"
	"gatekeeper/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RequireSession rejects requests without a valid session token and stores
// the caller id in Locals.
func RequireSession(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		id, err := auth.ValidateSession(c.UserContext(), token)
		if err != nil {
			errorStatus(c, err)
			if token != "" {
				applog.Security(c, "access.denied.session", map[string]any{"reason": sessionReason(err)})
			}
			return writeError(c, err)
		}
		c.Locals(applog.UserIDKey, id)
		return c.Next()
	}
}

// RequireAdmin enforces a session whose stored user has the admin role.
func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := auth.CurrentUser(c.UserContext(), c.Cookies(SessionCookie))
		if err != nil {
			errorStatus(c, err)
			if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrUnauthenticated) {
				applog.Security(c, "access.denied.admin", map[string]any{"reason": sessionReason(err)})
			}
			return writeError(c, err)
		}
		c.Locals(applog.UserIDKey, u.ID)
		if !u.IsAdmin() {
			c.Status(fiber.StatusForbidden)
			applog.Security(c, "access.denied.admin", map[string]any{"reason": "not_admin"})
			return writeError(c, domain.ErrForbidden)
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// sessionReason labels a rejected session for the logs without echoing
// token parser output.
func sessionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "missing"
	case services.IsExpired(err):
		return "expired"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid"
	}
	return "error"
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}
