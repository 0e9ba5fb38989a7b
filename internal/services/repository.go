package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/bikestore/internal/models"
)

// ProductRepository reads catalog stock and prices.
type ProductRepository interface {
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// CartRepository persists carts. Save and Delete compare the cart Version and
// return ErrCartConflict when another writer got there first.
type CartRepository interface {
	FindOpen(ctx context.Context, phone string) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByRazorpayOrderID(ctx context.Context, orderID string) (*models.Cart, error)
	FindOrderByNumber(ctx context.Context, number string) (*models.Cart, error)
	ListOrders(ctx context.Context, phone string, limit, offset int) ([]models.Cart, int64, error)
	Create(ctx context.Context, cart *models.Cart) error
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, cart *models.Cart) error

	// PlaceOrder atomically reserves stock for every line, consumes one coupon
	// use when a coupon is applied, and saves the cart. Nothing is written if
	// any step fails.
	PlaceOrder(ctx context.Context, cart *models.Cart) error
}

// CouponRepository looks up coupons and their per-phone usage.
type CouponRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error)
	UsageCount(ctx context.Context, couponID uuid.UUID, phone string) (int, error)
}

// OTPRepository stores one-time codes.
type OTPRepository interface {
	DeleteUnverified(ctx context.Context, isdCode, phone string) error
	Create(ctx context.Context, otp *models.OTP) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindLatestUnverified(ctx context.Context, isdCode, phone string, now time.Time) (*models.OTP, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// ProfileFinder resolves a profile by phone; nil with no error when absent.
type ProfileFinder interface {
	FindProfile(ctx context.Context, isdCode, phone string) (*models.Profile, error)
}

// PaymentEventRepository records webhook deliveries. Record reports false when
// the delivery was already stored.
type PaymentEventRepository interface {
	Record(ctx context.Context, event *models.PaymentEvent) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
