package models

import (
	"time"

	"gorm.io/gorm"
)

// LoginTracking is written after every successful OTP login
type LoginTracking struct {
	gorm.Model
	UserID    uint      `gorm:"index" json:"userId"`
	Channel   string    `json:"channel"`
	IPAddress string    `json:"ipAddress"`
	Device    string    `json:"device"`
	Timestamp time.Time `json:"timestamp"`
}
