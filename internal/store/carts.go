package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
)

// CartStore persists carts and orders in PostgreSQL.
type CartStore struct {
	db *gorm.DB
}

var _ services.CartRepository = (*CartStore)(nil)

// NewCartStore constructs CartStore.
func NewCartStore(db *gorm.DB) *CartStore {
	return &CartStore{db: db}
}

func (s *CartStore) FindOpen(ctx context.Context, phone string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Where("phone_number = ? AND status IN ?", phone, models.OpenCartStatuses).
		First(&cart).Error
	return cartResult(&cart, err)
}

func (s *CartStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).First(&cart, "id = ?", id).Error
	return cartResult(&cart, err)
}

func (s *CartStore) FindByRazorpayOrderID(ctx context.Context, orderID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Where("razorpay_order_id = ?", orderID).
		Order("created_at desc").
		First(&cart).Error
	return cartResult(&cart, err)
}

func (s *CartStore) FindOrderByNumber(ctx context.Context, number string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).Where("order_number = ?", number).First(&cart).Error
	return cartResult(&cart, err)
}

func (s *CartStore) ListOrders(ctx context.Context, phone string, limit, offset int) ([]models.Cart, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Cart{}).
		Where("phone_number = ? AND status = ?", phone, models.CartStatusOrdered)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Cart
	if err := query.Order("order_date desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *CartStore) Create(ctx context.Context, cart *models.Cart) error {
	cart.Version = 1
	err := s.db.WithContext(ctx).Create(cart).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another request opened a cart for this phone first.
		return services.ErrCartConflict
	}
	return err
}

func (s *CartStore) Save(ctx context.Context, cart *models.Cart) error {
	next, err := updateVersioned(s.db.WithContext(ctx), cart)
	if err != nil {
		return err
	}
	cart.Version = next
	return nil
}

func (s *CartStore) Delete(ctx context.Context, cart *models.Cart) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND version = ?", cart.ID, cart.Version).
		Delete(&models.Cart{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrCartConflict
	}
	return nil
}

func (s *CartStore) PlaceOrder(ctx context.Context, cart *models.Cart) error {
	var next int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range cart.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND quantity_available >= ?", item.ProductID, item.Quantity).
				UpdateColumn("quantity_available", gorm.Expr("quantity_available - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &services.LineStockError{ProductID: item.ProductID, Requested: item.Quantity}
			}
		}

		if cart.CouponID != nil {
			if err := consumeCoupon(tx, *cart.CouponID, cart.PhoneNumber); err != nil {
				return err
			}
		}

		var err error
		next, err = updateVersioned(tx, cart)
		return err
	})
	if err != nil {
		return err
	}

	cart.Version = next
	return nil
}

// updateVersioned writes every column of cart if its version is unchanged
// and returns the new version.
func updateVersioned(tx *gorm.DB, cart *models.Cart) (int, error) {
	row := *cart
	row.Version = cart.Version + 1
	row.UpdatedAt = time.Now()

	res := tx.Model(&row).
		Where("version = ?", cart.Version).
		Select("*").
		Omit("id", "created_at").
		Updates(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return 0, services.ErrCartConflict
		}
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, services.ErrCartConflict
	}

	cart.UpdatedAt = row.UpdatedAt
	return row.Version, nil
}

// consumeCoupon counts one redemption, refusing once the global or
// per-phone limit is reached.
func consumeCoupon(tx *gorm.DB, couponID uuid.UUID, phone string) error {
	res := tx.Model(&models.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrCouponExhausted
	}

	now := time.Now()
	usage := models.CouponUsage{
		CouponID:    couponID,
		PhoneNumber: phone,
		UsageCount:  1,
		UsedAt:      now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "coupon_id"}, {Name: "phone_number"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"usage_count": gorm.Expr("coupon_usages.usage_count + 1"),
			"used_at":     now,
			"updated_at":  now,
		}),
	}).Create(&usage).Error
	if err != nil {
		return err
	}

	var coupon models.Coupon
	if err := tx.Select("id", "usage_limit").First(&coupon, "id = ?", couponID).Error; err != nil {
		return err
	}
	if coupon.UsageLimit == nil {
		return nil
	}

	var count int
	if err := tx.Model(&models.CouponUsage{}).
		Select("usage_count").
		Where("coupon_id = ? AND phone_number = ?", couponID, phone).
		Scan(&count).Error; err != nil {
		return err
	}
	if count > *coupon.UsageLimit {
		return services.ErrCouponExhausted
	}
	return nil
}

func cartResult(cart *models.Cart, err error) (*models.Cart, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}
