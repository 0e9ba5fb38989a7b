package models

import "github.com/google/uuid"

// Brand is a motorcycle manufacturer.
type Brand struct {
	BaseModel
	Name        string      `gorm:"uniqueIndex;not null" json:"name"`
	Description string      `json:"description"`
	Models      []BikeModel `gorm:"foreignKey:BrandID" json:"models,omitempty"`
}

// BikeModel belongs to exactly one Brand.
type BikeModel struct {
	BaseModel
	BrandID     uuid.UUID `gorm:"type:uuid;index;not null" json:"brand_id"`
	Brand       *Brand    `json:"brand,omitempty"`
	Name        string    `gorm:"not null" json:"name"`
	Type        string    `json:"type"`
	Category    string    `gorm:"index" json:"category"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
}
