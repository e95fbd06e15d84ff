package handlers

import (
	"errors"

	"gatekeeper/internal/domain"
	applog "gatekeeper/internal/log"

	"github.com/gofiber/fiber/v2"
)

const friendlyError = "Something went wrong. Please try again."

// statusFor maps service errors to an HTTP status and a short client message.
// Unknown errors map to 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		return fiber.StatusBadRequest, domain.ErrDuplicateEmail.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return fiber.StatusBadRequest, domain.ErrInvalidCredentials.Error()
	case errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound, domain.ErrUserNotFound.Error()
	case errors.Is(err, domain.ErrPendingApproval):
		return fiber.StatusForbidden, domain.ErrPendingApproval.Error()
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, domain.ErrForbidden.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return fiber.StatusUnauthorized, domain.ErrUnauthenticated.Error()
	case errors.Is(err, domain.ErrInvalidToken):
		return fiber.StatusUnauthorized, domain.ErrInvalidToken.Error()
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests, domain.ErrRateLimited.Error()
	}
	return fiber.StatusInternalServerError, friendlyError
}

// errorStatus sets the status writeError will answer with. Call it before
// logging a failure so the log line carries the final status.
func errorStatus(c *fiber.Ctx, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.Status(fiber.StatusBadRequest)
		return
	}
	status, _ := statusFor(err)
	c.Status(status)
}

// writeError renders a known error as JSON. Unknown errors are returned so
// the app ErrorHandler logs them and answers 500.
func writeError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": verr.Fields})
	}
	status, msg := statusFor(err)
	if status == fiber.StatusInternalServerError {
		return err
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// ErrorHandler is the app-wide fallback. It never exposes internal details.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ferr *fiber.Error
	if errors.As(err, &ferr) && ferr.Code < fiber.StatusInternalServerError {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}
	c.Status(fiber.StatusInternalServerError)
	applog.Error(c, "server.error", err, nil)
	return c.JSON(fiber.Map{"error": friendlyError})
}
