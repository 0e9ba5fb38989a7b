package models

import (
	"time"
)

// OTP is a one-time code sent to a phone. Only the bcrypt hash is stored.
type OTP struct {
	BaseModel
	IsdCode     string     `gorm:"not null;index:idx_otps_phone" json:"isd_code"`
	PhoneNumber string     `gorm:"not null;index:idx_otps_phone" json:"phone_number"`
	CodeHash    string     `gorm:"not null" json:"-"`
	IsVerified  bool       `json:"is_verified"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	ExpiresAt   time.Time  `gorm:"index" json:"expires_at"`
	VerifiedAt  *time.Time `json:"verified_at"`
}
