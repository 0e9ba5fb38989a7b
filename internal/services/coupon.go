package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/example/bikestore/internal/models"
)

// CouponService decides coupon eligibility and discount amounts.
type CouponService struct {
	coupons CouponRepository
	now     func() time.Time
}

// NewCouponService constructs CouponService.
func NewCouponService(coupons CouponRepository) *CouponService {
	return &CouponService{coupons: coupons, now: time.Now}
}

// Eligibility is the outcome of checking a coupon against a cart.
type Eligibility struct {
	Valid  bool   `json:"is_valid"`
	Reason string `json:"reason,omitempty"`
}

// CouponValidation is returned by the public validate endpoint.
type CouponValidation struct {
	IsValid  bool           `json:"is_valid"`
	Coupon   *models.Coupon `json:"coupon"`
	Discount float64        `json:"discount"`
	Errors   []string       `json:"errors"`
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the active coupon for code.
func (s *CouponService) Lookup(ctx context.Context, code string) (*models.Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCouponNotFound
	}
	return s.coupons.FindActiveByCode(ctx, code)
}

// CheckEligibility evaluates the rules in order; the first failure wins.
func (s *CouponService) CheckEligibility(ctx context.Context, coupon *models.Coupon, phone string, subtotal float64) (Eligibility, error) {
	usage := 0
	if coupon.UsageLimit != nil && phone != "" {
		n, err := s.coupons.UsageCount(ctx, coupon.ID, phone)
		if err != nil {
			return Eligibility{}, err
		}
		usage = n
	}
	return checkEligibility(coupon, usage, subtotal, s.now()), nil
}

// Validate backs the public coupon check. A nil cartAmount skips the minimum check.
func (s *CouponService) Validate(ctx context.Context, code, phone string, cartAmount *float64) (*CouponValidation, error) {
	coupon, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	result := &CouponValidation{IsValid: true, Coupon: coupon, Errors: []string{}}

	subtotal := coupon.MinCartAmount
	if cartAmount != nil {
		subtotal = *cartAmount
	}

	elig, err := s.CheckEligibility(ctx, coupon, phone, subtotal)
	if err != nil {
		return nil, err
	}
	if !elig.Valid {
		result.IsValid = false
		result.Errors = append(result.Errors, elig.Reason)
		return result, nil
	}

	if cartAmount != nil {
		result.Discount = CalculateDiscount(coupon, *cartAmount)
	}
	return result, nil
}

func checkEligibility(coupon *models.Coupon, userUsage int, subtotal float64, now time.Time) Eligibility {
	switch {
	case !coupon.IsActive:
		return Eligibility{Reason: "Coupon is not active"}
	case coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt):
		return Eligibility{Reason: "Coupon has expired"}
	case subtotal < coupon.MinCartAmount:
		return Eligibility{Reason: fmt.Sprintf("Minimum cart amount of ₹%s required", formatRupees(coupon.MinCartAmount))}
	case coupon.UsageLimit != nil && userUsage >= *coupon.UsageLimit:
		return Eligibility{Reason: "Coupon usage limit exceeded for this user"}
	case coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit:
		return Eligibility{Reason: "Coupon has reached maximum usage"}
	}
	return Eligibility{Valid: true}
}

// CalculateDiscount returns the discount in whole rupees, never more than the
// subtotal.
func CalculateDiscount(coupon *models.Coupon, subtotal float64) float64 {
	var discount float64
	switch coupon.Type {
	case models.CouponPercentage:
		discount = subtotal * coupon.Discount / 100
		if coupon.MaxDiscount != nil && discount > *coupon.MaxDiscount {
			discount = *coupon.MaxDiscount
		}
	default:
		discount = coupon.Discount
	}
	return min(math.Round(discount), max(subtotal, 0))
}

// ValidateCouponDefinition checks an admin-supplied coupon before it is stored.
func ValidateCouponDefinition(coupon *models.Coupon) error {
	if coupon.Code == "" || coupon.Type == "" || coupon.Discount <= 0 {
		return errors.New("missing required fields: code, type, discount")
	}
	if !models.IsCouponType(coupon.Type) {
		return errors.New("invalid coupon type")
	}
	if coupon.Type == models.CouponPercentage {
		if coupon.Discount > 100 {
			return errors.New("percentage discount cannot exceed 100")
		}
		if coupon.Discount > 50 && coupon.MaxDiscount == nil {
			return errors.New("high percentage coupons should have a max_discount limit")
		}
	}
	return nil
}

func formatRupees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
