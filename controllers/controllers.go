// Package controllers holds the Fiber handlers. Controllers only parse
// input, call a service and translate sentinel errors into HTTP statuses;
// all state transitions live in the services package.
package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"linkup/apperrors"
)

func Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "pong"})
}

// RequireIdentity reads the caller identity the trusted gateway attaches to
// every request. Requests without it never reach the services.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing X-User-ID header"})
		}
		c.Locals("userId", userID)
		return c.Next()
	}
}

func callerID(c *fiber.Ctx) string {
	userID, _ := c.Locals("userId").(string)
	return userID
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return 400
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return 403
	case errors.Is(err, apperrors.ErrNotFound):
		return 404
	case errors.Is(err, apperrors.ErrAlreadyResolved), errors.Is(err, apperrors.ErrAlreadyDecided):
		return 409
	case errors.Is(err, apperrors.ErrTransactionAborted):
		return 503
	}
	return 500
}

func fail(c *fiber.Ctx, err error) error {
	status := errStatus(err)
	if status == 500 {
		return c.Status(500).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
