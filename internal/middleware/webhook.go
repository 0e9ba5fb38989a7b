package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bikestore/internal/services"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

// RazorpaySignatureMiddleware rejects webhook deliveries whose HMAC over the
// raw body does not match the signature header.
func RazorpaySignatureMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get(razorpaySignatureHeader)
		if signature == "" || !services.VerifyWebhookSignature(secret, c.Body(), signature) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid webhook signature")
		}
		return c.Next()
	}
}
