package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
)

// OTPStore keeps one-time codes.
type OTPStore struct {
	db *gorm.DB
}

var _ services.OTPRepository = (*OTPStore)(nil)

// NewOTPStore constructs OTPStore.
func NewOTPStore(db *gorm.DB) *OTPStore {
	return &OTPStore{db: db}
}

func (s *OTPStore) DeleteUnverified(ctx context.Context, isdCode, phone string) error {
	return s.db.WithContext(ctx).
		Where("isd_code = ? AND phone_number = ? AND is_verified = ?", isdCode, phone, false).
		Delete(&models.OTP{}).Error
}

func (s *OTPStore) Create(ctx context.Context, otp *models.OTP) error {
	return s.db.WithContext(ctx).Create(otp).Error
}

func (s *OTPStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.OTP{}, "id = ?", id).Error
}

func (s *OTPStore) FindLatestUnverified(ctx context.Context, isdCode, phone string, now time.Time) (*models.OTP, error) {
	var otp models.OTP
	err := s.db.WithContext(ctx).
		Where("isd_code = ? AND phone_number = ? AND is_verified = ? AND expires_at > ?", isdCode, phone, false, now).
		Order("created_at desc").
		First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (s *OTPStore) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.OTP{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

func (s *OTPStore) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.OTP{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_verified": true, "verified_at": at}).Error
}

// PurgeExpired removes every code past its expiry, verified or not.
func (s *OTPStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.OTP{})
	return res.RowsAffected, res.Error
}
