package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
)

// ProductStore reads product stock and prices.
type ProductStore struct {
	db *gorm.DB
}

var _ services.ProductRepository = (*ProductStore)(nil)

// NewProductStore constructs ProductStore.
func NewProductStore(db *gorm.DB) *ProductStore {
	return &ProductStore{db: db}
}

// FindProducts returns the products among ids that exist, keyed by id.
func (s *ProductStore) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []models.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}
