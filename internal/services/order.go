package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/example/bikestore/internal/models"
)

// OrderService manages carts that have become orders.
type OrderService struct {
	carts  CartRepository
	events OrderEventPublisher
	now    func() time.Time
}

// NewOrderService constructs OrderService.
func NewOrderService(carts CartRepository) *OrderService {
	return &OrderService{carts: carts, now: time.Now}
}

// SetEventPublisher enables status change events.
func (s *OrderService) SetEventPublisher(p OrderEventPublisher) {
	s.events = p
}

// StatusUpdate is an admin change to an order. Nil fields are left untouched.
type StatusUpdate struct {
	OrderStatus       string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
	Notes             *string
}

// ListOrders returns the newest orders placed by phone.
func (s *OrderService) ListOrders(ctx context.Context, phone string, limit, offset int) ([]models.Cart, int64, error) {
	return s.carts.ListOrders(ctx, phone, limit, offset)
}

// GetOrder loads an order by cart id.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, err := s.carts.FindByID(ctx, id)
	if errors.Is(err, ErrCartNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if cart.OrderNumber == nil {
		return nil, ErrOrderNotFound
	}
	return cart, nil
}

// GetOrderByNumber loads an order by its order number.
func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*models.Cart, error) {
	cart, err := s.carts.FindOrderByNumber(ctx, number)
	if errors.Is(err, ErrCartNotFound) {
		return nil, ErrOrderNotFound
	}
	return cart, err
}

// UpdateStatus applies an admin status change. Cancelling a paid order marks
// the payment refunded.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (*models.Cart, error) {
	if !models.IsOrderStatus(upd.OrderStatus) {
		return nil, ErrInvalidOrderStatus
	}

	return s.mutateOrder(ctx, id, func(order *models.Cart) error {
		if upd.OrderStatus == models.OrderStatusCancelled {
			if err := cancelable(order, models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusReturned); err != nil {
				return err
			}
		}

		order.OrderStatus = upd.OrderStatus
		if upd.TrackingNumber != nil {
			order.TrackingNumber = *upd.TrackingNumber
		}
		if upd.EstimatedDelivery != nil {
			order.EstimatedDelivery = upd.EstimatedDelivery
		}
		if upd.Notes != nil && *upd.Notes != "" {
			order.Notes = appendNote(order.Notes, *upd.Notes, s.now())
		}
		if upd.OrderStatus == models.OrderStatusCancelled && order.PaymentStatus == models.PaymentStatusPaid {
			order.PaymentStatus = models.PaymentStatusRefunded
		}
		return nil
	})
}

// Cancel cancels an order on the customer's behalf. Only orders that have
// not shipped yet qualify.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.Cart, error) {
	return s.mutateOrder(ctx, id, func(order *models.Cart) error {
		if err := cancelable(order, models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusReturned); err != nil {
			return err
		}

		order.OrderStatus = models.OrderStatusCancelled
		if order.PaymentStatus == models.PaymentStatusPaid {
			order.PaymentStatus = models.PaymentStatusRefunded
		}

		note := "Order cancelled by customer"
		if reason != "" {
			note += ": " + reason
		}
		order.Notes = appendNote(order.Notes, note, s.now())
		return nil
	})
}

func (s *OrderService) mutateOrder(ctx context.Context, id uuid.UUID, fn func(*models.Cart) error) (*models.Cart, error) {
	for attempt := 1; ; attempt++ {
		order, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(order); err != nil {
			return nil, err
		}

		err = s.carts.Save(ctx, order)
		if err == nil {
			log.Printf("[Order] %s is now %s (payment %s)", *order.OrderNumber, order.OrderStatus, order.PaymentStatus)
			publishOrderEvent(s.events, EventOrderStatusChanged, order, s.now())
			return order, nil
		}
		if !errors.Is(err, ErrCartConflict) || attempt >= maxCartRetries {
			return nil, err
		}
	}
}

func cancelable(order *models.Cart, refused ...string) error {
	if slices.Contains(refused, order.OrderStatus) {
		return fmt.Errorf("%w: order is already %s", ErrOrderNotCancelable, order.OrderStatus)
	}
	return nil
}

func appendNote(existing, note string, at time.Time) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + at.UTC().Format(time.RFC3339) + ": " + note
}
