package models

import "github.com/lib/pq"

// Wishlist holds de-duplicated product ids for a phone number.
type Wishlist struct {
	BaseModel
	PhoneNumber string         `gorm:"uniqueIndex;not null" json:"phone_number"`
	ProductIDs  pq.StringArray `gorm:"type:text[]" json:"product_ids"`
	Products    []Product      `gorm:"-" json:"products"`
}

// Contains reports whether productID is already listed.
func (w *Wishlist) Contains(productID string) bool {
	for _, id := range w.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Remove drops productID and reports whether it was present.
func (w *Wishlist) Remove(productID string) bool {
	for i, id := range w.ProductIDs {
		if id == productID {
			w.ProductIDs = append(w.ProductIDs[:i], w.ProductIDs[i+1:]...)
			return true
		}
	}
	return false
}
