package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bikestore/internal/utils"
)

const phoneContextKey = "currentPhone"

// AuthMiddleware validates phone session tokens issued on OTP verification.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := utils.ParsePhoneToken(secret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(phoneContextKey, claims)
		return c.Next()
	}
}

// GetCurrentPhone returns the verified isd code and phone number of the caller.
func GetCurrentPhone(c *fiber.Ctx) (string, string, bool) {
	claims, ok := c.Locals(phoneContextKey).(*utils.PhoneClaims)
	if !ok || claims == nil {
		return "", "", false
	}
	return claims.IsdCode, claims.PhoneNumber, true
}
