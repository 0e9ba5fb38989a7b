package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is a sellable accessory. Price is in INR.
type Product struct {
	BaseModel
	BrandID           *uuid.UUID     `gorm:"type:uuid;index" json:"brand_id"`
	Brand             *Brand         `json:"brand,omitempty"`
	BikeModelID       *uuid.UUID     `gorm:"type:uuid;index" json:"model_id"`
	BikeModel         *BikeModel     `json:"model,omitempty"`
	IsBikeSpecific    bool           `json:"is_bike_specific"`
	Name              string         `gorm:"not null;index" json:"name"`
	ShortDescription  string         `json:"short_description"`
	LongDescription   string         `json:"long_description"`
	Description       string         `json:"description"`
	Category          string         `gorm:"index" json:"category"`
	CategoryIcon      string         `json:"category_icon"`
	Price             float64        `gorm:"not null" json:"price"`
	ImageURL          string         `json:"image_url"`
	Images            pq.StringArray `gorm:"type:text[]" json:"images"`
	QuantityAvailable int            `gorm:"not null;default:0;check:quantity_available >= 0" json:"quantity_available"`
	Specifications    string         `json:"specifications"`
	ShippingAndReturn string         `json:"shipping_and_return"`
	IsNewArrival      bool           `gorm:"index" json:"is_new_arrival"`
	IsGarageFavorite  bool           `gorm:"index" json:"is_garage_favorite"`
}

// InStock reports whether qty units can be sold right now.
func (p Product) InStock(qty int) bool {
	return qty <= p.QuantityAvailable
}
