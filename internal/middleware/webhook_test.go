package middleware

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bikestore/internal/services"
)

func TestRazorpaySignatureMiddleware(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"event":"payment.captured","payload":{}}`)

	app := fiber.New()
	app.Post("/webhook", RazorpaySignatureMiddleware(secret), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"valid signature", services.SignPayload(secret, body), fiber.StatusOK},
		{"missing signature", "", fiber.StatusBadRequest},
		{"wrong secret", services.SignPayload("nope", body), fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.signature != "" {
				req.Header.Set("X-Razorpay-Signature", tt.signature)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
