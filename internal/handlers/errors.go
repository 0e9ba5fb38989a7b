package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/services"
)

// ErrorHandler renders every error returned by a handler as
// {"success": false, "error": "..."}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("[HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

var badRequestErrors = []error{
	services.ErrCartEmpty,
	services.ErrAddressesRequired,
	services.ErrInsufficientStock,
	services.ErrInvalidPayMethod,
	services.ErrInvalidAmount,
	services.ErrItemsRequired,
	services.ErrCouponExhausted,
	services.ErrInvalidSignature,
	services.ErrPaymentMismatch,
	services.ErrInvalidISDCode,
	services.ErrInvalidPhone,
	services.ErrInvalidOTP,
	services.ErrOTPExpired,
	services.ErrOTPAttemptsExceeded,
	services.ErrInvalidOrderStatus,
	services.ErrOrderNotCancelable,
}

var notFoundErrors = []error{
	services.ErrCartNotFound,
	services.ErrOrderNotFound,
	services.ErrProductNotFound,
	services.ErrCouponNotFound,
	gorm.ErrRecordNotFound,
}

// serviceError maps a service failure onto an HTTP response. Errors that carry
// per-item details are written directly; everything else becomes a fiber error
// for ErrorHandler.
func serviceError(c *fiber.Ctx, err error) error {
	var itemErr *services.ItemValidationError
	if errors.As(err, &itemErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Validation errors in request",
			"details": itemErr.Items,
		})
	}

	var stockErr *services.StockError
	if errors.As(err, &stockErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":       false,
			"error":         stockErr.Error(),
			"invalid_items": invalidOnly(stockErr.Results),
		})
	}

	var holdErr *services.PaymentHoldError
	if errors.As(err, &holdErr) {
		log.Printf("[Payment] %v", holdErr)
		return fiber.NewError(fiber.StatusConflict, holdErr.Error())
	}

	var couponErr *services.CouponIneligibleError
	if errors.As(err, &couponErr) {
		return fiber.NewError(fiber.StatusBadRequest, couponErr.Reason)
	}

	switch {
	case errors.Is(err, services.ErrCartConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrSMSDelivery):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	return err
}

func invalidOnly(results []services.Availability) []services.Availability {
	out := make([]services.Availability, 0, len(results))
	for _, r := range results {
		if !r.IsValid {
			out = append(out, r)
		}
	}
	return out
}
