package handlers

import (
	"errors"
	"time"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/log"
	"gatekeeper/internal/services"
	"gatekeeper/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "token"

type AuthHandler struct {
	Auth     *services.AuthService
	Secure   bool
	SameSite string
}

func (h *AuthHandler) setSession(c *fiber.Ctx, s *services.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    s.Token,
		Path:     "/",
		MaxAge:   int(h.Auth.Tokens.TTL().Seconds()),
		Expires:  s.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.Secure,
		SameSite: h.SameSite,
	})
}

func (h *AuthHandler) clearSession(c *fiber.Ctx) {
	// Same attributes as setSession or browsers keep the original cookie.
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   h.Secure,
		SameSite: h.SameSite,
	})
}

// POST /api/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in validate.Account
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	u, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		errorStatus(c, err)
		log.Security(c, "auth.register.fail", map[string]any{"email": validate.Email(in.Email), "reason": reason(err)})
		return writeError(c, err)
	}
	log.Audit(c, "auth.register", map[string]any{"email": u.Email, "user": u.ID, "approved": u.Approved})
	msg := "registered"
	if !u.Approved {
		msg = "registered, pending approval"
	}
	return c.JSON(fiber.Map{"message": msg})
}

// POST /api/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in validate.Credentials
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	email := validate.Email(in.Email)
	s, err := h.Auth.Authenticate(c.UserContext(), in.Email, in.Password)
	if err != nil {
		why := reason(err)
		// Unknown email and wrong password look the same to the client.
		if errors.Is(err, domain.ErrUserNotFound) {
			err = domain.ErrInvalidCredentials
		}
		errorStatus(c, err)
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": why})
		return writeError(c, err)
	}
	h.setSession(c, s)
	c.Locals(log.UserIDKey, s.User.ID)
	log.Audit(c, "auth.login.success", map[string]any{"email": email, "token_id": s.TokenID})
	return c.JSON(fiber.Map{"message": "logged in"})
}

// GET /api/me, behind RequireSession.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	id, _ := c.Locals(log.UserIDKey).(string)
	return c.JSON(fiber.Map{"message": "session valid", "userId": id})
}

// POST /api/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(SessionCookie)
	if err := h.Auth.Logout(c.UserContext(), token); err != nil {
		log.Error(c, "auth.logout.revoke.fail", err, nil)
	}
	h.clearSession(c)
	log.Audit(c, "auth.logout", map[string]any{"had_token": token != ""})
	return c.JSON(fiber.Map{"message": "logged out"})
}

// reason is the log label for a failed auth operation.
func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrPendingApproval):
		return "pending_approval"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "bad_password"
	}
	return "error"
}
