package models

import (
	"gorm.io/gorm"
)

// AadharVerification keeps an audit row per identity check. Only the last
// four digits of the number are stored.
type AadharVerification struct {
	gorm.Model
	UserID       *uint  `gorm:"index" json:"userId,omitempty"`
	MaskedNumber string `gorm:"size:20" json:"maskedNumber"`
	Name         string `json:"name"`
	IsVerified   bool   `gorm:"default:false" json:"isVerified"`
	Method       string `gorm:"size:20" json:"method"` // api, development
}
