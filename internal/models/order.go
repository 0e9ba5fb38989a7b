package models

// Cart lifecycle states. A cart in StatusOrdered is the order record.
const (
	CartStatusActive    = "active"
	CartStatusValidated = "validated"
	CartStatusCheckout  = "checkout"
	CartStatusCompleted = "completed"
	CartStatusOrdered   = "ordered"
)

// OpenCartStatuses are the states covered by the one-open-cart-per-phone index.
var OpenCartStatuses = []string{CartStatusActive, CartStatusValidated, CartStatusCheckout}

// Fulfilment states of an order.
const (
	OrderStatusPlaced     = "placed"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusReturned   = "returned"
)

// OrderStatuses lists every accepted fulfilment state.
var OrderStatuses = []string{
	OrderStatusPlaced,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
}

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	PaymentMethodOnline     = "online"
	PaymentMethodCard       = "card"
	PaymentMethodUPI        = "upi"
	PaymentMethodNetbanking = "netbanking"
	PaymentMethodCOD        = "cod"
	PaymentMethodWallet     = "wallet"
)

// IsOpenStatus reports whether status belongs to a cart still being edited or paid for.
func IsOpenStatus(status string) bool {
	for _, s := range OpenCartStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsOrderStatus reports whether status is a known fulfilment state.
func IsOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}
