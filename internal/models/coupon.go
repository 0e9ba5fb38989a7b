package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CouponPercentage = "Percentage"
	CouponFlat       = "Flat"
	CouponSpecial    = "Special"
	CouponFestival   = "Festival"
	CouponFirstOrder = "First Order"
)

// CouponTypes lists every accepted coupon type.
var CouponTypes = []string{CouponPercentage, CouponFlat, CouponSpecial, CouponFestival, CouponFirstOrder}

// Coupon is a discount code. UsageLimit caps both total and per-phone redemptions.
type Coupon struct {
	BaseModel
	Code          string        `gorm:"uniqueIndex;not null" json:"code"`
	Type          string        `gorm:"not null" json:"type"`
	Discount      float64       `gorm:"not null" json:"discount"`
	MaxDiscount   *float64      `json:"max_discount"`
	MinCartAmount float64       `gorm:"not null;default:0" json:"min_cart_amount"`
	UsageLimit    *int          `json:"usage_limit"`
	UsedCount     int           `gorm:"not null;default:0" json:"used_count"`
	IsActive      bool          `gorm:"index" json:"is_active"`
	ExpiresAt     *time.Time    `gorm:"index" json:"expires_at"`
	Description   string        `json:"description"`
	UsedBy        []CouponUsage `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE" json:"used_by,omitempty"`
}

// CouponUsage counts redemptions of one coupon by one phone number.
type CouponUsage struct {
	BaseModel
	CouponID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_coupon_usage_phone" json:"coupon_id"`
	PhoneNumber string    `gorm:"not null;uniqueIndex:ux_coupon_usage_phone" json:"phone_number"`
	UsageCount  int       `gorm:"not null;default:1" json:"usage_count"`
	UsedAt      time.Time `json:"used_at"`
}

// IsCouponType reports whether t is a known coupon type.
func IsCouponType(t string) bool {
	for _, ct := range CouponTypes {
		if ct == t {
			return true
		}
	}
	return false
}
