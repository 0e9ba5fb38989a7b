package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Health reports that the API is up.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"status":    "OK",
			"message":   "Bike store API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
