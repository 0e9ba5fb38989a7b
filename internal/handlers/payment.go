package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bikestore/internal/services"
	"github.com/example/bikestore/internal/utils"
)

// PaymentHandler bridges carts and the payment gateway.
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createPaymentOrderRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type verifyPaymentRequest struct {
	CartID            string `json:"cart_id" validate:"required,uuid"`
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// CreateOrder opens a gateway order for the caller's cart total.
func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	var req createPaymentOrderRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.payments.CreateOrder(c.UserContext(), req.PhoneNumber)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": session})
}

// VerifyPayment checks the checkout callback signature and places the order.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	var req verifyPaymentRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.payments.Verify(c.UserContext(), services.VerifyRequest{
		CartID:    uuid.MustParse(req.CartID),
		OrderID:   req.RazorpayOrderID,
		PaymentID: req.RazorpayPaymentID,
		Signature: req.RazorpaySignature,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment verified successfully",
		"data":    newCartView(cart),
	})
}

// Webhook receives gateway events. The signature is checked by middleware.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	if err := h.payments.HandleWebhook(c.UserContext(), c.Body()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "status": "ok"})
}

func (h *PaymentHandler) GetStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("cartId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid cart id")
	}

	cart, err := h.payments.Status(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"cart_id":             cart.ID,
			"status":              cart.Status,
			"payment_status":      cart.PaymentStatus,
			"payment_method":      cart.PaymentMethod,
			"order_status":        cart.OrderStatus,
			"order_number":        cart.OrderNumber,
			"razorpay_order_id":   cart.RazorpayOrderID,
			"razorpay_payment_id": cart.RazorpayPaymentID,
			"total_amount":        cart.TotalAmount,
		},
	})
}
