package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bikestore/internal/models"
)

func testCoupon(code, typ string, discount float64) *models.Coupon {
	return &models.Coupon{
		BaseModel: models.BaseModel{ID: uuid.New()},
		Code:      code,
		Type:      typ,
		Discount:  discount,
		IsActive:  true,
	}
}

func TestCalculateDiscount(t *testing.T) {
	capped := testCoupon("SAVE20", models.CouponPercentage, 20)
	capped.MaxDiscount = floatPtr(500)

	uncapped := testCoupon("TEN", models.CouponPercentage, 10)

	tests := []struct {
		name     string
		coupon   *models.Coupon
		subtotal float64
		want     float64
	}{
		{"percentage capped by max discount", capped, 5000, 500},
		{"percentage under cap", capped, 1000, 200},
		{"percentage rounds to whole rupees", uncapped, 1234, 123},
		{"flat ignores subtotal", testCoupon("FLAT100", models.CouponFlat, 100), 2500, 100},
		{"festival behaves as flat", testCoupon("DIWALI", models.CouponFestival, 250), 3000, 250},
		{"flat capped at subtotal", testCoupon("FLAT100", models.CouponFlat, 100), 80, 80},
		{"cap keeps paise of subtotal", testCoupon("FLAT100", models.CouponFlat, 100), 80.6, 80.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateDiscount(tt.coupon, tt.subtotal))
		})
	}
}

func TestCheckEligibility_RuleOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	t.Run("inactive wins over everything", func(t *testing.T) {
		c := testCoupon("X", models.CouponFlat, 50)
		c.IsActive = false
		c.ExpiresAt = &past
		c.MinCartAmount = 1000
		got := checkEligibility(c, 0, 10, now)
		assert.False(t, got.Valid)
		assert.Equal(t, "Coupon is not active", got.Reason)
	})

	t.Run("expired before minimum", func(t *testing.T) {
		c := testCoupon("X", models.CouponFlat, 50)
		c.ExpiresAt = &past
		c.MinCartAmount = 1000
		got := checkEligibility(c, 0, 10, now)
		assert.Equal(t, "Coupon has expired", got.Reason)
	})

	t.Run("minimum cart amount", func(t *testing.T) {
		c := testCoupon("X", models.CouponFlat, 50)
		c.MinCartAmount = 1000
		got := checkEligibility(c, 0, 999, now)
		assert.False(t, got.Valid)
		assert.Equal(t, "Minimum cart amount of ₹1000 required", got.Reason)

		assert.True(t, checkEligibility(c, 0, 1000, now).Valid)
	})

	t.Run("per user limit", func(t *testing.T) {
		c := testCoupon("X", models.CouponFlat, 50)
		c.UsageLimit = intPtr(1)
		got := checkEligibility(c, 1, 100, now)
		assert.Equal(t, "Coupon usage limit exceeded for this user", got.Reason)
	})

	t.Run("global limit", func(t *testing.T) {
		c := testCoupon("X", models.CouponFlat, 50)
		c.UsageLimit = intPtr(3)
		c.UsedCount = 3
		got := checkEligibility(c, 0, 100, now)
		assert.Equal(t, "Coupon has reached maximum usage", got.Reason)
	})

	t.Run("future expiry is fine", func(t *testing.T) {
		c := testCoupon("X", models.CouponFlat, 50)
		future := now.Add(time.Hour)
		c.ExpiresAt = &future
		assert.True(t, checkEligibility(c, 0, 100, now).Valid)
	})
}

func TestCouponService_Validate(t *testing.T) {
	ctx := context.Background()
	coupon := testCoupon("RIDE10", models.CouponPercentage, 10)
	coupon.MinCartAmount = 1000
	coupon.MaxDiscount = floatPtr(300)
	svc := NewCouponService(newFakeCoupons(coupon))

	t.Run("code is normalised", func(t *testing.T) {
		res, err := svc.Validate(ctx, "  ride10 ", "", floatPtr(2000))
		require.NoError(t, err)
		assert.True(t, res.IsValid)
		assert.Equal(t, 200.0, res.Discount)
		assert.Empty(t, res.Errors)
	})

	t.Run("below minimum", func(t *testing.T) {
		res, err := svc.Validate(ctx, "RIDE10", "", floatPtr(500))
		require.NoError(t, err)
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{"Minimum cart amount of ₹1000 required"}, res.Errors)
		assert.Zero(t, res.Discount)
	})

	t.Run("without cart amount skips the minimum", func(t *testing.T) {
		res, err := svc.Validate(ctx, "RIDE10", "", nil)
		require.NoError(t, err)
		assert.True(t, res.IsValid)
		assert.Zero(t, res.Discount)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.Validate(ctx, "NOPE", "", nil)
		assert.ErrorIs(t, err, ErrCouponNotFound)
	})

	t.Run("blank code", func(t *testing.T) {
		_, err := svc.Validate(ctx, "   ", "", nil)
		assert.ErrorIs(t, err, ErrCouponNotFound)
	})
}

func TestCouponService_PerPhoneUsage(t *testing.T) {
	ctx := context.Background()
	coupon := testCoupon("ONCE", models.CouponFlat, 100)
	coupon.UsageLimit = intPtr(1)
	repo := newFakeCoupons(coupon)
	svc := NewCouponService(repo)

	require.NoError(t, repo.consume(coupon.ID, "9876543210"))

	elig, err := svc.CheckEligibility(ctx, coupon, "9876543210", 1000)
	require.NoError(t, err)
	assert.False(t, elig.Valid)
	assert.Equal(t, "Coupon usage limit exceeded for this user", elig.Reason)
}

func TestValidateCouponDefinition(t *testing.T) {
	tests := []struct {
		name    string
		coupon  models.Coupon
		wantErr string
	}{
		{"missing code", models.Coupon{Type: models.CouponFlat, Discount: 10}, "missing required fields: code, type, discount"},
		{"unknown type", models.Coupon{Code: "A", Type: "Bogus", Discount: 10}, "invalid coupon type"},
		{"over 100 percent", models.Coupon{Code: "A", Type: models.CouponPercentage, Discount: 120}, "percentage discount cannot exceed 100"},
		{"high percentage without cap", models.Coupon{Code: "A", Type: models.CouponPercentage, Discount: 60}, "high percentage coupons should have a max_discount limit"},
		{"high percentage with cap", models.Coupon{Code: "A", Type: models.CouponPercentage, Discount: 60, MaxDiscount: floatPtr(100)}, ""},
		{"flat", models.Coupon{Code: "A", Type: models.CouponFlat, Discount: 500}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCouponDefinition(&tt.coupon)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
