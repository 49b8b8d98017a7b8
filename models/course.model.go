package models

import "gorm.io/gorm"

const (
	CategoryNEET        = "NEET"
	CategoryIITJEE      = "IIT-JEE"
	CategorySchoolExams = "SCHOOL_EXAMS"
	CategoryOlympiads   = "OLYMPIADS"
)

// Course represents a catalog entry owned by a teacher
type Course struct {
	gorm.Model
	Title        string  `gorm:"not null" json:"title"`
	Description  string  `json:"description"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	TeacherID    uint    `gorm:"index" json:"teacherId"`
	Category     string  `gorm:"size:20;index;not null" json:"category"`
	Price        float64 `gorm:"default:0" json:"price"`
	IsPublished  bool    `gorm:"default:false" json:"isPublished"`
	IsDeleted    bool    `gorm:"default:false" json:"-"`
}
