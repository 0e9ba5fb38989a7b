package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// CartItem is one product line. Price is the unit price snapshot.
type CartItem struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url,omitempty"`
	Category   string    `json:"category,omitempty"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	TotalPrice float64   `json:"total_price"`
}

// CartItems is stored as a jsonb array on the carts table.
type CartItems []CartItem

// Value implements driver.Valuer.
func (items CartItems) Value() (driver.Value, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}

// Scan implements sql.Scanner.
func (items *CartItems) Scan(value any) error {
	if value == nil {
		*items = CartItems{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("cart items: unsupported scan type")
	}

	return json.Unmarshal(raw, items)
}

// Find returns the index of the line for productID, or -1.
func (items CartItems) Find(productID uuid.UUID) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Address is a postal address snapshot kept on the cart.
type Address struct {
	FullName     string `json:"full_name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Country      string `json:"country" validate:"required"`
}

// Cart doubles as the order record once Status becomes ordered.
type Cart struct {
	BaseModel
	PhoneNumber       string     `gorm:"not null;index" json:"phone_number"`
	Items             CartItems  `gorm:"type:jsonb;not null" json:"items"`
	ShippingAddress   *Address   `gorm:"serializer:json;type:jsonb" json:"shipping_address"`
	BillingAddress    *Address   `gorm:"serializer:json;type:jsonb" json:"billing_address"`
	Subtotal          float64    `json:"subtotal"`
	ShippingCost      float64    `json:"shipping_cost"`
	TaxAmount         float64    `json:"tax_amount"`
	DiscountAmount    float64    `json:"discount_amount"`
	TotalAmount       float64    `json:"total_amount"`
	CouponID          *uuid.UUID `gorm:"type:uuid" json:"applied_coupon"`
	CouponCode        string     `json:"coupon_code"`
	Status            string     `gorm:"not null;default:active;index" json:"status"`
	OrderNumber       *string    `gorm:"uniqueIndex" json:"order_number"`
	OrderDate         *time.Time `json:"order_date"`
	OrderStatus       string     `gorm:"not null;default:placed" json:"order_status"`
	PaymentMethod     string     `json:"payment_method"`
	PaymentStatus     string     `gorm:"not null;default:pending" json:"payment_status"`
	RazorpayOrderID   *string    `gorm:"index" json:"razorpay_order_id"`
	PaymentAmount     int64      `json:"payment_amount"`
	RazorpayPaymentID string     `json:"razorpay_payment_id"`
	RazorpaySignature string     `json:"-"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	TrackingNumber    string     `json:"tracking_number"`
	Notes             string     `json:"notes"`
	Version           int        `gorm:"not null;default:1" json:"version"`

	// Virtual marks a cart that has never been persisted.
	Virtual bool `gorm:"-" json:"-"`
}

// NewVirtualCart returns the zero-valued cart shown when a phone has no open cart.
func NewVirtualCart(phone string) *Cart {
	return &Cart{
		PhoneNumber:   phone,
		Items:         CartItems{},
		Status:        CartStatusActive,
		OrderStatus:   OrderStatusPlaced,
		PaymentStatus: PaymentStatusPending,
		Virtual:       true,
	}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// HasAddresses reports whether both shipping and billing addresses are set.
func (c *Cart) HasAddresses() bool {
	return c.ShippingAddress != nil && c.BillingAddress != nil
}

// RecalculateSubtotal refreshes every line total and the subtotal.
func (c *Cart) RecalculateSubtotal() {
	subtotal := 0.0
	for i := range c.Items {
		c.Items[i].TotalPrice = RoundAmount(c.Items[i].Price * float64(c.Items[i].Quantity))
		subtotal += c.Items[i].TotalPrice
	}
	c.Subtotal = RoundAmount(subtotal)
}

// RecalculateTotal applies totalAmount = subtotal + shipping + tax - discount.
func (c *Cart) RecalculateTotal() {
	c.TotalAmount = RoundAmount(c.Subtotal + c.ShippingCost + c.TaxAmount - c.DiscountAmount)
}

// ClearCoupon detaches any applied coupon.
func (c *Cart) ClearCoupon() {
	c.CouponID = nil
	c.CouponCode = ""
	c.DiscountAmount = 0
}

// RoundAmount rounds a currency amount to two decimals.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
