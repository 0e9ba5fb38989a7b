package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/bikestore/internal/models"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderPaymentFailed = "order.payment_failed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEventPublisher delivers order lifecycle events keyed by cart id.
type OrderEventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// OrderNotifier tells staff about new orders.
type OrderNotifier interface {
	NotifyOrderPlaced(cart models.Cart) error
}

// OrderEvent is the payload published for every order transition.
type OrderEvent struct {
	Type          string    `json:"type"`
	CartID        uuid.UUID `json:"cart_id"`
	OrderNumber   string    `json:"order_number,omitempty"`
	PhoneNumber   string    `json:"phone_number"`
	TotalAmount   float64   `json:"total_amount"`
	OrderStatus   string    `json:"order_status"`
	PaymentStatus string    `json:"payment_status"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventType names the event for transport headers.
func (e OrderEvent) EventType() string { return e.Type }

// NewOrderEvent snapshots cart into an event of the given type.
func NewOrderEvent(eventType string, cart *models.Cart, at time.Time) OrderEvent {
	evt := OrderEvent{
		Type:          eventType,
		CartID:        cart.ID,
		PhoneNumber:   cart.PhoneNumber,
		TotalAmount:   cart.TotalAmount,
		OrderStatus:   cart.OrderStatus,
		PaymentStatus: cart.PaymentStatus,
		PaymentMethod: cart.PaymentMethod,
		OccurredAt:    at,
	}
	if cart.OrderNumber != nil {
		evt.OrderNumber = *cart.OrderNumber
	}
	return evt
}

func publishOrderEvent(publisher OrderEventPublisher, eventType string, cart *models.Cart, at time.Time) {
	if publisher == nil {
		return
	}

	evt := NewOrderEvent(eventType, cart, at)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := publisher.Publish(ctx, evt.CartID.String(), evt); err != nil {
			log.Printf("[Events] failed to publish %s for cart %s: %v", evt.Type, evt.CartID, err)
		}
	}()
}
