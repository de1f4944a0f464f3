package models

import (
	"time"
)

// OTP is a one-time passcode issued to a mobile number. At most one live row
// exists per number; consumed, replaced and expired codes are soft-deleted.
type OTP struct {
	Model
	SoftDelete

	MobileNumber string     `gorm:"size:15;not null;index" json:"mobile_number"`
	Code         string     `gorm:"size:10;not null" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	IsVerified   bool       `gorm:"not null;default:false" json:"is_verified"`
	VerifiedAt   *time.Time `json:"verified_at"`
}

func (OTP) TableName() string {
	return "otps"
}

// Expired reports whether the code is past its expiry at the given instant.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
