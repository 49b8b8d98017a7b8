package liveclass

import (
	"context"
	"errors"
	"strings"
	"time"

	"eduvibe/models"
	"eduvibe/utils"

	"github.com/jinzhu/now"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SettingsInput carries optional overrides of the class defaults
type SettingsInput struct {
	ChatEnabled      *bool `json:"chatEnabled"`
	HandRaiseEnabled *bool `json:"handRaiseEnabled"`
	PollsEnabled     *bool `json:"pollsEnabled"`
	RecordingEnabled *bool `json:"recordingEnabled"`
	ParticipantLimit *int  `json:"participantLimit"`
}

type CreateInput struct {
	Title              string
	Description        string
	CourseID           uint
	ScheduledStartTime time.Time
	StreamURL          string
	MaxQuality         string
	Settings           *SettingsInput
}

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	CourseID  uint
	TeacherID uint
	Status    string
	Day       *time.Time
	Page      int
	Limit     int
}

func applySettings(in *SettingsInput) (models.ClassSettings, error) {
	s := models.DefaultClassSettings()
	if in == nil {
		return s, nil
	}
	if in.ChatEnabled != nil {
		s.ChatEnabled = *in.ChatEnabled
	}
	if in.HandRaiseEnabled != nil {
		s.HandRaiseEnabled = *in.HandRaiseEnabled
	}
	if in.PollsEnabled != nil {
		s.PollsEnabled = *in.PollsEnabled
	}
	if in.RecordingEnabled != nil {
		s.RecordingEnabled = *in.RecordingEnabled
	}
	if in.ParticipantLimit != nil {
		limit := *in.ParticipantLimit
		if limit < 1 || limit > models.MaxParticipantLimit {
			return s, utils.BadRequest("participantLimit must be between 1 and 1000")
		}
		s.ParticipantLimit = limit
	}
	return s, nil
}

func validQuality(q string) bool {
	for _, v := range models.VideoQualities {
		if v == q {
			return true
		}
	}
	return false
}

// Create schedules a class owned by teacherID
func (e *Engine) Create(ctx context.Context, teacherID uint, in CreateInput) (*models.LiveClass, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, utils.BadRequest("Title is required")
	}
	if in.ScheduledStartTime.IsZero() {
		return nil, utils.BadRequest("scheduledStartTime is required")
	}

	quality := in.MaxQuality
	if quality == "" {
		quality = models.DefaultMaxQuality
	}
	if !validQuality(quality) {
		return nil, utils.BadRequest("maxQuality must be one of 360p, 480p, 720p, 1080p")
	}

	settings, err := applySettings(in.Settings)
	if err != nil {
		return nil, err
	}

	db := e.db.WithContext(ctx)

	var course models.Course
	err = db.Where("id = ? AND is_deleted = ?", in.CourseID, false).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, utils.Internal("Failed to create live class", err)
	}

	class := models.LiveClass{
		Title:              title,
		Description:        in.Description,
		CourseID:           course.ID,
		TeacherID:          teacherID,
		ScheduledStartTime: in.ScheduledStartTime,
		Status:             models.ClassScheduled,
		StreamURL:          in.StreamURL,
		MaxQuality:         quality,
		Settings:           settings,
	}
	if err := db.Create(&class).Error; err != nil {
		return nil, utils.Internal("Failed to create live class", err)
	}

	e.log.Info("live class scheduled",
		zap.Uint("classId", class.ID),
		zap.Uint("teacherId", teacherID),
		zap.Time("scheduledStartTime", class.ScheduledStartTime))
	return &class, nil
}

// Get returns the stored class
func (e *Engine) Get(ctx context.Context, id uint) (*models.LiveClass, error) {
	return e.load(ctx, id)
}

// List returns one page of classes ordered by scheduled start
func (e *Engine) List(ctx context.Context, f Filter) ([]models.LiveClass, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	query := e.db.WithContext(ctx).Model(&models.LiveClass{})
	if f.CourseID != 0 {
		query = query.Where("course_id = ?", f.CourseID)
	}
	if f.TeacherID != 0 {
		query = query.Where("teacher_id = ?", f.TeacherID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Day != nil {
		day := now.New(*f.Day)
		query = query.Where("scheduled_start_time BETWEEN ? AND ?", day.BeginningOfDay(), day.EndOfDay())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, utils.Internal("Failed to fetch live classes", err)
	}

	var classes []models.LiveClass
	err := query.Order("scheduled_start_time asc").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&classes).Error
	if err != nil {
		return nil, 0, utils.Internal("Failed to fetch live classes", err)
	}
	return classes, total, nil
}

// Start moves a scheduled class to LIVE
func (e *Engine) Start(ctx context.Context, id, requester uint) (*models.LiveClass, error) {
	return e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireOwner(class, requester); err != nil {
			return nil, err
		}
		if class.Status != models.ClassScheduled {
			return nil, ErrInvalidTransition
		}

		started := e.now()
		class.Status = models.ClassLive
		class.ActualStartTime = &started

		return func() {
			e.hub.Emit(Room(id), EventClassStarted, ClassStarted{ClassID: id, StartTime: started})
			e.log.Info("live class started", zap.Uint("classId", id))
		}, nil
	})
}

// End finishes a live class, closing open roster entries and active polls
func (e *Engine) End(ctx context.Context, id, requester uint) (*models.LiveClass, error) {
	return e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireOwner(class, requester); err != nil {
			return nil, err
		}
		if class.Status != models.ClassLive {
			return nil, ErrInvalidTransition
		}

		ended := e.now()
		class.Status = models.ClassEnded
		class.EndTime = &ended

		for i := range class.Participants {
			if class.Participants[i].LeftAt == nil {
				class.Participants[i].LeftAt = &ended
			}
		}
		for i := range class.Polls {
			if class.Polls[i].IsActive {
				class.Polls[i].IsActive = false
				class.Polls[i].EndedAt = &ended
			}
		}

		return func() {
			e.hub.Emit(Room(id), EventClassEnded, ClassEnded{ClassID: id, EndTime: ended})
			e.log.Info("live class ended", zap.Uint("classId", id))
		}, nil
	})
}

// Cancel drops a class that never started
func (e *Engine) Cancel(ctx context.Context, id, requester uint) (*models.LiveClass, error) {
	return e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireOwner(class, requester); err != nil {
			return nil, err
		}
		if class.Status != models.ClassScheduled {
			return nil, ErrInvalidTransition
		}

		class.Status = models.ClassCancelled

		return func() {
			e.hub.Emit(Room(id), EventClassCancelled, ClassCancelled{ClassID: id})
		}, nil
	})
}

func openEntry(class *models.LiveClass, userID uint) int {
	for i := range class.Participants {
		if class.Participants[i].UserID == userID && class.Participants[i].LeftAt == nil {
			return i
		}
	}
	return -1
}

func openCount(class *models.LiveClass) int {
	n := 0
	for _, p := range class.Participants {
		if p.LeftAt == nil {
			n++
		}
	}
	return n
}

// Join opens a roster entry for userID. The role is decided here, not by
// the caller: the class teacher joins as TEACHER and everyone else as
// STUDENT. MODERATOR is only reachable through GrantModerator.
func (e *Engine) Join(ctx context.Context, id, userID uint, role string) (*models.LiveClass, error) {
	switch role {
	case "", models.RoleStudent, models.RoleTeacher, models.RoleModerator:
	default:
		return nil, utils.BadRequest("Unknown participant role")
	}

	return e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if class.Status != models.ClassLive {
			return nil, ErrNotJoinable
		}
		if openEntry(class, userID) >= 0 {
			return nil, ErrAlreadyJoined
		}
		if openCount(class) >= class.Settings.ParticipantLimit {
			return nil, ErrClassFull
		}

		role = models.RoleStudent
		if class.TeacherID == userID {
			role = models.RoleTeacher
		}

		entry := models.Participant{UserID: userID, Role: role, JoinedAt: e.now()}
		class.Participants = append(class.Participants, entry)

		return func() {
			e.hub.Emit(Room(id), EventParticipantJoined, ParticipantJoined{
				UserID:   userID,
				Role:     entry.Role,
				JoinedAt: entry.JoinedAt,
			})
		}, nil
	})
}

// Leave closes the user's open roster entry, removes their sockets from the
// room and republishes the viewer count. Leaving without an open entry is
// a no-op on the roster. Only live classes can be left; End already closed
// every entry of a finished class.
func (e *Engine) Leave(ctx context.Context, id, userID uint) (*models.LiveClass, error) {
	return e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireLive(class); err != nil {
			return nil, err
		}
		closeEntry(class, userID, e.now())

		return func() {
			room := Room(id)
			e.hub.EvictUser(room, userID)
			e.hub.BroadcastViewerCount(room)
		}, nil
	})
}

// CloseAttendance closes the user's open roster entry without touching
// room membership. The socket gateway calls it once a user's last
// connection has left the room.
func (e *Engine) CloseAttendance(ctx context.Context, id, userID uint) error {
	_, err := e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if class.Status != models.ClassLive || openEntry(class, userID) < 0 {
			return nil, errUnchanged
		}
		closeEntry(class, userID, e.now())
		return nil, nil
	})
	return err
}

// GrantModerator promotes a participant with an open roster entry to
// MODERATOR. Only the class teacher can grant it.
func (e *Engine) GrantModerator(ctx context.Context, id, requester, userID uint) (*models.Participant, error) {
	var granted models.Participant
	_, err := e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireOwner(class, requester); err != nil {
			return nil, err
		}
		if err := requireLive(class); err != nil {
			return nil, err
		}
		i := openEntry(class, userID)
		if i < 0 {
			return nil, ErrNotParticipant
		}
		if class.Participants[i].Role == models.RoleTeacher {
			return nil, utils.BadRequest("The class teacher cannot be made a moderator")
		}

		class.Participants[i].Role = models.RoleModerator
		granted = class.Participants[i]

		return func() {
			e.hub.Emit(Room(id), EventParticipantRole, ParticipantRole{UserID: userID, Role: granted.Role})
			e.log.Info("moderator granted", zap.Uint("classId", id), zap.Uint("userId", userID))
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &granted, nil
}

func closeEntry(class *models.LiveClass, userID uint, at time.Time) {
	if i := openEntry(class, userID); i >= 0 {
		class.Participants[i].LeftAt = &at
	}
}
