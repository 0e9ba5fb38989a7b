package models

// OwnedBike records a bike the customer rides.
type OwnedBike struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
}

// Profile is the customer identity keyed by (isd code, phone number).
type Profile struct {
	BaseModel
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	IsdCode      string      `gorm:"not null;uniqueIndex:ux_profiles_phone" json:"isd_code"`
	PhoneNumber  string      `gorm:"not null;uniqueIndex:ux_profiles_phone" json:"phone_number"`
	EmailID      string      `json:"email_id"`
	Address      string      `json:"address"`
	NotifyOffers bool        `json:"notify_offers"`
	BikesOwned   []OwnedBike `gorm:"serializer:json;type:jsonb" json:"bikes_owned"`
}
