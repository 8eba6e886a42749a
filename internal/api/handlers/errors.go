package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/services"
)

// serviceError maps service sentinels onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.Error("API: failed to %s: %v", action, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to " + action})
	}
}
