package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
	"github.com/example/bikestore/internal/utils"
)

// CartHandler exposes the cart engine.
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type phoneRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type manageItemsRequest struct {
	PhoneNumber string                 `json:"phone_number" validate:"required"`
	Items       []services.ItemRequest `json:"items"`
}

type validateItemsRequest struct {
	Items []services.ItemRequest `json:"items"`
}

type addressesRequest struct {
	PhoneNumber     string          `json:"phone_number" validate:"required"`
	ShippingAddress *models.Address `json:"shipping_address"`
	BillingAddress  *models.Address `json:"billing_address"`
}

type applyCouponBody struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	CouponCode  string `json:"coupon_code" validate:"required"`
}

type checkoutRequest struct {
	PhoneNumber   string `json:"phone_number" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=online cod"`
}

// GetActiveCart returns the open cart, or an empty cart with a null id.
func (h *CartHandler) GetActiveCart(c *fiber.Ctx) error {
	phone := c.Params("phoneNumber")
	if phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone_number is required")
	}

	cart, err := h.carts.ActiveCart(c.UserContext(), phone)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": newCartView(cart)})
}

// ManageItems adds, updates or removes a batch of cart lines.
func (h *CartHandler) ManageItems(c *fiber.Ctx) error {
	var req manageItemsRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.carts.ManageItems(c.UserContext(), req.PhoneNumber, req.Items)
	if err != nil {
		return serviceError(c, err)
	}

	message := "Cart updated successfully"
	if result.Cart.Virtual {
		message = "Cart is now empty"
	}
	if n := len(result.Unprocessed); n > 0 {
		message = fmt.Sprintf("%s, %d item(s) could not be fully processed", message, n)
	}

	resp := fiber.Map{
		"success":           true,
		"message":           message,
		"data":              newCartView(result.Cart),
		"processed_items":   result.Processed,
		"unprocessed_items": result.Unprocessed,
	}
	if result.CouponRemoved != "" {
		resp["coupon_removed"] = result.CouponRemoved
	}
	return c.JSON(resp)
}

// ValidateItems checks an item list against stock without touching any cart.
func (h *CartHandler) ValidateItems(c *fiber.Ctx) error {
	var req validateItemsRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	results, ok, err := h.carts.ValidateItems(c.UserContext(), req.Items)
	if err != nil {
		return serviceError(c, err)
	}

	message := "All items are available"
	if !ok {
		message = "Some items are not available"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"is_valid":      ok,
			"items":         results,
			"invalid_items": invalidOnly(results),
			"message":       message,
		},
	})
}

func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	var req phoneRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.carts.Clear(c.UserContext(), req.PhoneNumber)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Cart cleared", "data": newCartView(cart)})
}

// UpdateAddresses sets the shipping and/or billing address.
func (h *CartHandler) UpdateAddresses(c *fiber.Ctx) error {
	var req addressesRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}
	if req.ShippingAddress == nil && req.BillingAddress == nil {
		return fiber.NewError(fiber.StatusBadRequest, "shipping_address or billing_address is required")
	}

	cart, err := h.carts.UpdateAddresses(c.UserContext(), req.PhoneNumber, req.ShippingAddress, req.BillingAddress)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Addresses updated", "data": newCartView(cart)})
}

func (h *CartHandler) ApplyCoupon(c *fiber.Ctx) error {
	var req applyCouponBody
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.carts.ApplyCoupon(c.UserContext(), req.PhoneNumber, req.CouponCode)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Coupon applied successfully", "data": newCartView(cart)})
}

func (h *CartHandler) RemoveCoupon(c *fiber.Ctx) error {
	var req phoneRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.carts.RemoveCoupon(c.UserContext(), req.PhoneNumber)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Coupon removed", "data": newCartView(cart)})
}

// Checkout validates the cart for payment. Cash on delivery orders are placed
// immediately.
func (h *CartHandler) Checkout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	cart, err := h.carts.Checkout(c.UserContext(), req.PhoneNumber, req.PaymentMethod)
	if err != nil {
		return serviceError(c, err)
	}

	message := "Cart is ready for payment"
	if cart.Status == models.CartStatusOrdered {
		message = "Order placed successfully"
	}
	return c.JSON(fiber.Map{"success": true, "message": message, "data": newCartView(cart)})
}
