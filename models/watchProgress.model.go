package models

import "gorm.io/gorm"

type WatchProgress struct {
	gorm.Model
	UserID   uint    `gorm:"uniqueIndex:idx_progress_user_video;not null" json:"userId"`
	VideoID  string  `gorm:"size:100;uniqueIndex:idx_progress_user_video;not null" json:"videoId"`
	Position float64 `json:"position"` // seconds
	Duration float64 `json:"duration"` // seconds
}
