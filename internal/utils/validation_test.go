package utils

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addressInput struct {
	City string `json:"city" validate:"required"`
}

type checkoutInput struct {
	PaymentMethod string        `json:"payment_method" validate:"required,oneof=online cod"`
	Quantity      int           `json:"quantity" validate:"gte=1"`
	Shipping      *addressInput `json:"shipping_address" validate:"omitempty"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name  string
		input checkoutInput
		want  string
	}{
		{"missing field", checkoutInput{Quantity: 1}, "payment_method is required"},
		{"oneof", checkoutInput{PaymentMethod: "barter", Quantity: 1}, "payment_method must be one of [online cod]"},
		{"gte", checkoutInput{PaymentMethod: "cod"}, "quantity must be greater than or equal to 1"},
		{"nested uses json path", checkoutInput{PaymentMethod: "cod", Quantity: 1, Shipping: &addressInput{}}, "shipping_address.city is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			var fe *fiber.Error
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, fiber.StatusBadRequest, fe.Code)
			assert.Equal(t, tt.want, fe.Message)
		})
	}

	assert.NoError(t, ValidateStruct(&checkoutInput{PaymentMethod: "online", Quantity: 2}))
}
