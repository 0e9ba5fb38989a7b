package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound      = errors.New("active cart not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrAddressesRequired = errors.New("shipping and billing addresses are required")
	ErrCartConflict      = errors.New("cart was modified concurrently, please retry")
	ErrInsufficientStock = errors.New("insufficient quantity available")
	ErrInvalidPayMethod  = errors.New("invalid payment method")
	ErrInvalidAmount     = errors.New("cart total must be greater than zero")
	ErrItemsRequired     = errors.New("items array is required and cannot be empty")

	ErrCouponNotFound  = errors.New("invalid coupon code")
	ErrCouponExhausted = errors.New("coupon has reached maximum usage")

	ErrInvalidSignature = errors.New("payment verification failed")
	ErrPaymentMismatch  = errors.New("payment does not belong to this cart")
	ErrAmountMismatch   = errors.New("paid amount does not match cart total")

	ErrInvalidISDCode      = errors.New("only isd code 91 is supported")
	ErrInvalidPhone        = errors.New("phone number must be exactly 10 digits")
	ErrInvalidOTP          = errors.New("Invalid OTP. Please check and try again")
	ErrOTPExpired          = errors.New("OTP expired or not found. Please request a new one")
	ErrOTPAttemptsExceeded = errors.New("too many invalid attempts. Please request a new OTP")
	ErrSMSDelivery         = errors.New("failed to send OTP")

	ErrInvalidOrderStatus = errors.New("invalid order status")
	ErrOrderNotCancelable = errors.New("order can no longer be cancelled")
)

// ItemError describes one malformed entry of a cart item batch.
type ItemError struct {
	Index     int    `json:"index"`
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
	Message   string `json:"message"`
}

// ItemValidationError rejects a whole batch before any mutation.
type ItemValidationError struct {
	Items []ItemError
}

func (e *ItemValidationError) Error() string {
	return "validation errors in request"
}

// StockError reports that at least one line cannot be fulfilled.
type StockError struct {
	Results []Availability
}

func (e *StockError) Error() string {
	return "some products are no longer available"
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// LineStockError is returned by the order placement transaction.
type LineStockError struct {
	ProductID uuid.UUID
	Requested int
}

func (e *LineStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

func (e *LineStockError) Unwrap() error {
	return ErrInsufficientStock
}

// CouponIneligibleError carries the first failed eligibility rule.
type CouponIneligibleError struct {
	Reason string
}

func (e *CouponIneligibleError) Error() string {
	return e.Reason
}

// PaymentHoldError means the payment was captured but the order could not be placed.
type PaymentHoldError struct {
	Cause error
}

func (e *PaymentHoldError) Error() string {
	return "payment captured but order could not be placed: " + e.Cause.Error()
}

func (e *PaymentHoldError) Unwrap() error {
	return e.Cause
}

// ValidationMessages flattens item errors for logging.
func ValidationMessages(items []ItemError) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("#%d %s", it.Index, it.Message))
	}
	return strings.Join(parts, "; ")
}
