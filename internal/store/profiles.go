package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
)

// ProfileStore looks up customer profiles.
type ProfileStore struct {
	db *gorm.DB
}

var _ services.ProfileFinder = (*ProfileStore)(nil)

// NewProfileStore constructs ProfileStore.
func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// FindProfile returns nil, nil when no profile exists.
func (s *ProfileStore) FindProfile(ctx context.Context, isdCode, phone string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).
		Where("isd_code = ? AND phone_number = ?", isdCode, phone).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
