// Package liveclass owns the lifecycle of a live class and everything that
// happens inside one: roster, polls, hand-raises and chat.
package liveclass

import (
	"context"
	"errors"
	"strconv"
	"time"

	"eduvibe/models"
	"eduvibe/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = utils.NewApiError(utils.KindNotFound, "ClassNotFound", "Live class not found")
	ErrForbidden         = utils.NewApiError(utils.KindForbidden, "Forbidden", "Only the class teacher can do this")
	ErrInvalidTransition = utils.NewApiError(utils.KindConflict, "InvalidTransition", "Live class cannot move to that state")
	ErrNotJoinable       = utils.NewApiError(utils.KindBadRequest, "NotJoinable", "Live class is not live")
	ErrClassNotLive      = utils.NewApiError(utils.KindBadRequest, "ClassNotLive", "This can only be done while the class is live")
	ErrNotParticipant    = utils.NewApiError(utils.KindNotFound, "NotParticipant", "User is not in this class")
	ErrAlreadyJoined     = utils.NewApiError(utils.KindConflict, "AlreadyJoined", "Already joined this class")
	ErrClassFull         = utils.NewApiError(utils.KindConflict, "ClassFull", "Live class is full")
	ErrPollsDisabled     = utils.NewApiError(utils.KindBadRequest, "PollsDisabled", "Polls are disabled for this class")
	ErrPollNotFound      = utils.NewApiError(utils.KindNotFound, "PollNotFound", "Poll not found")
	ErrPollInactive      = utils.NewApiError(utils.KindBadRequest, "PollInactive", "Poll is no longer active")
	ErrAlreadyVoted      = utils.NewApiError(utils.KindBadRequest, "AlreadyVoted", "Already voted on this poll")
	ErrHandRaiseDisabled = utils.NewApiError(utils.KindBadRequest, "HandRaiseDisabled", "Hand raising is disabled for this class")
	ErrHandRaiseNotFound = utils.NewApiError(utils.KindNotFound, "HandRaiseNotFound", "Hand raise not found")
	ErrChatDisabled      = utils.NewApiError(utils.KindBadRequest, "ChatDisabled", "Chat is disabled for this class")
	ErrCourseNotFound    = utils.NewApiError(utils.KindNotFound, "CourseNotFound", "Course not found")
)

// errUnchanged lets a mutation bail out without saving or failing
var errUnchanged = errors.New("unchanged")

// Broadcaster fans events out to the sockets watching a class
type Broadcaster interface {
	Emit(room, event string, payload interface{})
	BroadcastViewerCount(room string)
	EvictUser(room string, userID uint)
	RoomSize(room string) int
}

// Room is the broadcast room of a class
func Room(classID uint) string {
	return strconv.FormatUint(uint64(classID), 10)
}

type Engine struct {
	db    *gorm.DB
	hub   Broadcaster
	locks *utils.KeyedMutex
	now   func() time.Time
	log   *zap.Logger
}

func NewEngine(db *gorm.DB, hub Broadcaster, log *zap.Logger) *Engine {
	return &Engine{
		db:    db,
		hub:   hub,
		locks: utils.NewKeyedMutex(),
		now:   time.Now,
		log:   log,
	}
}

// SetClock replaces time.Now
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) load(ctx context.Context, id uint) (*models.LiveClass, error) {
	var class models.LiveClass
	err := e.db.WithContext(ctx).First(&class, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, utils.Internal("Failed to load live class", err)
	}
	return &class, nil
}

// mutate loads the class, applies fn and writes the whole aggregate back,
// all under the class lock. The func fn returns runs after the save, still
// under the lock, so broadcasts for one class go out in commit order.
func (e *Engine) mutate(ctx context.Context, id uint, fn func(*models.LiveClass) (func(), error)) (*models.LiveClass, error) {
	unlock := e.locks.Lock(Room(id))
	defer unlock()

	class, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	after, err := fn(class)
	if errors.Is(err, errUnchanged) {
		return class, nil
	}
	if err != nil {
		return nil, err
	}

	if err := e.db.WithContext(ctx).Save(class).Error; err != nil {
		e.log.Error("saving live class", zap.Uint("classId", id), zap.Error(err))
		return nil, utils.Internal("Failed to update live class", err)
	}

	if after != nil {
		after()
	}
	return class, nil
}

func requireOwner(class *models.LiveClass, requester uint) error {
	if class.TeacherID != requester {
		return ErrForbidden
	}
	return nil
}

func requireLive(class *models.LiveClass) error {
	if class.Status != models.ClassLive {
		return ErrClassNotLive
	}
	return nil
}

// ViewerCount is the number of sockets currently in the class room
func (e *Engine) ViewerCount(classID uint) int {
	return e.hub.RoomSize(Room(classID))
}
