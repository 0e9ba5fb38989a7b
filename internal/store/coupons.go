package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
)

// CouponStore reads coupons and their usage.
type CouponStore struct {
	db *gorm.DB
}

var _ services.CouponRepository = (*CouponStore)(nil)

// NewCouponStore constructs CouponStore.
func NewCouponStore(db *gorm.DB) *CouponStore {
	return &CouponStore{db: db}
}

func (s *CouponStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.WithContext(ctx).First(&coupon, "id = ?", id).Error
	return couponResult(&coupon, err)
}

func (s *CouponStore) FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&coupon).Error
	return couponResult(&coupon, err)
}

func (s *CouponStore) UsageCount(ctx context.Context, couponID uuid.UUID, phone string) (int, error) {
	var usage models.CouponUsage
	err := s.db.WithContext(ctx).
		Where("coupon_id = ? AND phone_number = ?", couponID, phone).
		First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return usage.UsageCount, nil
}

func couponResult(coupon *models.Coupon, err error) (*models.Coupon, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return coupon, nil
}
