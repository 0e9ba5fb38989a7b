package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bikestore/internal/services"
	"github.com/example/bikestore/internal/utils"
)

// OrderHandler manages order endpoints. Orders are carts in the ordered state.
type OrderHandler struct {
	orders *services.OrderService
	fx     *services.CurrencyService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService, fx *services.CurrencyService) *OrderHandler {
	return &OrderHandler{orders: orders, fx: fx}
}

type updateStatusRequest struct {
	OrderStatus       string     `json:"order_status" validate:"required"`
	TrackingNumber    *string    `json:"tracking_number"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Notes             *string    `json:"notes"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// ListUserOrders returns the orders placed by a phone number, newest first.
func (h *OrderHandler) ListUserOrders(c *fiber.Ctx) error {
	phone := c.Params("phoneNumber")
	if phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone_number is required")
	}

	ctx := c.UserContext()
	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListOrders(ctx, phone, pg.Limit, pg.Offset)
	if err != nil {
		return serviceError(c, err)
	}

	currency := c.Query("currency")
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, newOrderView(ctx, h.fx, &orders[i], currency))
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       views,
		"pagination": pg.Meta(total),
	})
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.GetOrder(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": newOrderView(c.UserContext(), h.fx, order, c.Query("currency"))})
}

func (h *OrderHandler) GetOrderByNumber(c *fiber.Ctx) error {
	order, err := h.orders.GetOrderByNumber(c.UserContext(), c.Params("orderNumber"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": newOrderView(c.UserContext(), h.fx, order, c.Query("currency"))})
}

// UpdateStatus is the admin fulfilment update.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var req updateStatusRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), id, services.StatusUpdate{
		OrderStatus:       req.OrderStatus,
		TrackingNumber:    req.TrackingNumber,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Order status updated", "data": order})
}

// CancelOrder lets the customer cancel before delivery.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var req cancelOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	order, err := h.orders.Cancel(c.UserContext(), id, req.Reason)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Order cancelled", "data": order})
}
