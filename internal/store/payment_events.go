package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
)

// PaymentEventStore records gateway webhook deliveries.
type PaymentEventStore struct {
	db *gorm.DB
}

var _ services.PaymentEventRepository = (*PaymentEventStore)(nil)

// NewPaymentEventStore constructs PaymentEventStore.
func NewPaymentEventStore(db *gorm.DB) *PaymentEventStore {
	return &PaymentEventStore{db: db}
}

// Record inserts event unless the same (event, payment id) was stored before.
func (s *PaymentEventStore) Record(ctx context.Context, event *models.PaymentEvent) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *PaymentEventStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.PaymentEvent{}, "id = ?", id).Error
}
