package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ChannelPhone = "phone"
	ChannelEmail = "email"

	PurposeSignup = "signup"
	PurposeLogin  = "login"
	PurposeReset  = "reset"
)

type OTP struct {
	gorm.Model
	Identifier string    `gorm:"size:100;index:idx_otp_identifier_channel;not null" json:"identifier"`
	Channel    string    `gorm:"size:10;index:idx_otp_identifier_channel;not null" json:"channel"` // phone, email
	CodeHash   string    `gorm:"not null" json:"-"`                                                 // bcrypt hash of the 6 digit code
	Purpose    string    `gorm:"size:10;default:'signup'" json:"purpose"`
	Attempts   int       `gorm:"default:0" json:"attempts"`
	IsVerified bool      `gorm:"default:false" json:"isVerified"`
	ExpiresAt  time.Time `gorm:"index;not null" json:"expiresAt"`
}
