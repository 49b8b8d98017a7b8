package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	UserTypeStudent = "student"
	UserTypeTeacher = "teacher"
	UserTypeParent  = "parent"
)

type User struct {
	gorm.Model
	FullName           string     `gorm:"not null" json:"fullName"`
	Phone              string     `gorm:"size:15;uniqueIndex;not null" json:"phone"`
	Email              string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	DOB                time.Time  `json:"dob"`
	AadharNumber       string     `gorm:"size:12;uniqueIndex;not null" json:"-"`
	UserType           string     `gorm:"size:10;index;default:'student'" json:"userType"` // student, teacher, parent
	ParentName         string     `json:"parentName,omitempty"`
	ParentPhone        string     `gorm:"size:15" json:"parentPhone,omitempty"`
	SelectedGoal       string     `json:"selectedGoal,omitempty"`  // NEET, IIT-JEE, SCHOOL_EXAMS
	SelectedClass      string     `json:"selectedClass,omitempty"` // 11, 12, DROPPER
	Specialization     string     `json:"specialization,omitempty"`
	TeachingExperience int        `json:"teachingExperience,omitempty"`
	ProfilePicture     string     `gorm:"default:'default-profile.png'" json:"profilePicture"`
	IsPhoneVerified    bool       `gorm:"default:false" json:"isPhoneVerified"`
	IsEmailVerified    bool       `gorm:"default:false" json:"isEmailVerified"`
	IsAadharVerified   bool       `gorm:"default:false" json:"isAadharVerified"`
	LastActive         *time.Time `json:"lastActive,omitempty"`
	IsActive           bool       `gorm:"default:true" json:"isActive"`
	IsDeleted          bool       `gorm:"default:false" json:"-"`
}
