package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ClassScheduled = "SCHEDULED"
	ClassLive      = "LIVE"
	ClassEnded     = "ENDED"
	ClassCancelled = "CANCELLED"

	RoleTeacher   = "TEACHER"
	RoleStudent   = "STUDENT"
	RoleModerator = "MODERATOR"

	DefaultParticipantLimit = 100
	MaxParticipantLimit     = 1000
	DefaultMaxQuality       = "720p"
)

// VideoQualities lists the renditions a class or video may be served in
var VideoQualities = []string{"360p", "480p", "720p", "1080p"}

// ClassSettings columns carry no gorm defaults: a false flag must survive
// the insert.
type ClassSettings struct {
	ChatEnabled      bool `json:"chatEnabled"`
	HandRaiseEnabled bool `json:"handRaiseEnabled"`
	PollsEnabled     bool `json:"pollsEnabled"`
	RecordingEnabled bool `json:"recordingEnabled"`
	ParticipantLimit int  `json:"participantLimit"`
}

func DefaultClassSettings() ClassSettings {
	return ClassSettings{
		ChatEnabled:      true,
		HandRaiseEnabled: true,
		PollsEnabled:     true,
		RecordingEnabled: true,
		ParticipantLimit: DefaultParticipantLimit,
	}
}

type Participant struct {
	UserID   uint       `json:"userId"`
	Role     string     `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
	LeftAt   *time.Time `json:"leftAt,omitempty"`
}

type PollOption struct {
	Text   string `json:"text"`
	Votes  int    `json:"votes"`
	Voters []uint `json:"voters"`
}

type Poll struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	IsActive  bool         `json:"isActive"`
	CreatedAt time.Time    `json:"createdAt"`
	EndedAt   *time.Time   `json:"endedAt,omitempty"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type HandRaise struct {
	ID         string     `json:"id"`
	UserID     uint       `json:"userId"`
	Username   string     `json:"username,omitempty"`
	Raised     bool       `json:"raised"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy *uint      `json:"resolvedBy,omitempty"`
}

// LiveClass is the aggregate root of a live session. Everything it owns is
// stored inline so a mutation is written back with a single UPDATE.
type LiveClass struct {
	gorm.Model
	Title              string                           `gorm:"not null" json:"title"`
	Description        string                           `json:"description"`
	CourseID           uint                             `gorm:"index;not null" json:"courseId"`
	TeacherID          uint                             `gorm:"index;not null" json:"teacherId"`
	ScheduledStartTime time.Time                        `gorm:"index;not null" json:"scheduledStartTime"`
	ActualStartTime    *time.Time                       `json:"actualStartTime,omitempty"`
	EndTime            *time.Time                       `json:"endTime,omitempty"`
	Status             string                           `gorm:"size:10;index;default:'SCHEDULED'" json:"status"`
	StreamURL          string                           `json:"streamUrl,omitempty"`
	RecordingURL       string                           `json:"recordingUrl,omitempty"`
	MaxQuality         string                           `gorm:"size:5;default:'720p'" json:"maxQuality"`
	Settings           ClassSettings                    `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	Participants       datatypes.JSONSlice[Participant] `json:"participants"`
	Polls              datatypes.JSONSlice[Poll]        `json:"polls"`
	ChatMessages       datatypes.JSONSlice[ChatMessage] `json:"chatMessages"`
	HandRaises         datatypes.JSONSlice[HandRaise]   `json:"handRaises"`
	ReminderSent       bool                             `gorm:"default:false" json:"-"`
}
