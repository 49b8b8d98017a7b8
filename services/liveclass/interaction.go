package liveclass

import (
	"context"
	"strings"
	"unicode/utf8"

	"eduvibe/models"
	"eduvibe/utils"

	"github.com/google/uuid"
)

const maxChatLength = 1000

func latestHandRaise(class *models.LiveClass, userID uint) *models.HandRaise {
	for i := len(class.HandRaises) - 1; i >= 0; i-- {
		if class.HandRaises[i].UserID == userID {
			return &class.HandRaises[i]
		}
	}
	return nil
}

// ToggleHandRaise appends an event flipping the user's current state. The
// first event for a user raises.
func (e *Engine) ToggleHandRaise(ctx context.Context, id, userID uint, username string) (*models.HandRaise, error) {
	return e.appendHandRaise(ctx, id, userID, username, nil)
}

// SetHandRaise appends an event with an explicit state
func (e *Engine) SetHandRaise(ctx context.Context, id, userID uint, username string, raised bool) (*models.HandRaise, error) {
	return e.appendHandRaise(ctx, id, userID, username, &raised)
}

func (e *Engine) appendHandRaise(ctx context.Context, id, userID uint, username string, raised *bool) (*models.HandRaise, error) {
	var event models.HandRaise
	_, err := e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireLive(class); err != nil {
			return nil, err
		}
		if !class.Settings.HandRaiseEnabled {
			return nil, ErrHandRaiseDisabled
		}

		state := true
		if raised != nil {
			state = *raised
		} else if last := latestHandRaise(class, userID); last != nil {
			state = !last.Raised
		}

		event = models.HandRaise{
			ID:        uuid.NewString(),
			UserID:    userID,
			Username:  username,
			Raised:    state,
			Timestamp: e.now(),
		}
		class.HandRaises = append(class.HandRaises, event)

		return func() {
			e.hub.Emit(Room(id), EventHandRaise, event)
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ResolveHandRaise marks one event as handled by the teacher
func (e *Engine) ResolveHandRaise(ctx context.Context, id uint, eventID string, requester uint) (*models.HandRaise, error) {
	var resolved models.HandRaise
	_, err := e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireOwner(class, requester); err != nil {
			return nil, err
		}

		var event *models.HandRaise
		for i := range class.HandRaises {
			if class.HandRaises[i].ID == eventID {
				event = &class.HandRaises[i]
				break
			}
		}
		if event == nil {
			return nil, ErrHandRaiseNotFound
		}

		at := e.now()
		by := requester
		event.Resolved = true
		event.ResolvedAt = &at
		event.ResolvedBy = &by
		resolved = *event

		return func() {
			e.hub.Emit(Room(id), EventHandResolved, HandResolved{
				ID:         resolved.ID,
				UserID:     resolved.UserID,
				ResolvedBy: by,
				ResolvedAt: at,
			})
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

// PostChat appends a message to the class history. Chat stays open after
// the class ends; scheduled and cancelled classes have no chat.
func (e *Engine) PostChat(ctx context.Context, id, userID uint, username, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, utils.BadRequest("Message cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxChatLength {
		return nil, utils.BadRequest("Message is too long")
	}

	var msg models.ChatMessage
	_, err := e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if class.Status != models.ClassLive && class.Status != models.ClassEnded {
			return nil, ErrClassNotLive
		}
		if !class.Settings.ChatEnabled {
			return nil, ErrChatDisabled
		}

		msg = models.ChatMessage{
			ID:        uuid.NewString(),
			UserID:    userID,
			Username:  username,
			Content:   content,
			Timestamp: e.now(),
		}
		class.ChatMessages = append(class.ChatMessages, msg)

		return func() {
			e.hub.Emit(Room(id), EventChatMessage, msg)
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
