package models

import (
	"github.com/google/uuid"
)

// PaymentEvent stores each signature-verified gateway webhook.
// (Event, PaymentID) is unique so redelivered webhooks are applied once.
type PaymentEvent struct {
	BaseModel
	Event           string     `gorm:"not null;uniqueIndex:ux_payment_events_delivery" json:"event"`
	PaymentID       string     `gorm:"not null;uniqueIndex:ux_payment_events_delivery" json:"payment_id"`
	RazorpayOrderID string     `gorm:"index" json:"razorpay_order_id"`
	CartID          *uuid.UUID `gorm:"type:uuid;index" json:"cart_id"`
	Amount          int64      `json:"amount"`
	Payload         []byte     `gorm:"type:jsonb" json:"payload"`
	Outcome         string     `json:"outcome"`
}
