package liveclass

import (
	"time"

	"eduvibe/models"
)

// Events pushed to a class room
const (
	EventClassStarted      = "class-started"
	EventClassEnded        = "class-ended"
	EventClassCancelled    = "class-cancelled"
	EventParticipantJoined = "participant-joined"
	EventParticipantRole   = "participant-role"
	EventNewPoll           = "new-poll"
	EventPollResults       = "poll-results"
	EventPollClosed        = "poll-closed"
	EventHandRaise         = "hand-raise"
	EventHandResolved      = "hand-resolved"
	EventChatMessage       = "chat-message"
)

type ClassStarted struct {
	ClassID   uint      `json:"classId"`
	StartTime time.Time `json:"startTime"`
}

type ClassEnded struct {
	ClassID uint      `json:"classId"`
	EndTime time.Time `json:"endTime"`
}

type ClassCancelled struct {
	ClassID uint `json:"classId"`
}

type ParticipantJoined struct {
	UserID   uint      `json:"userId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ParticipantRole struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
}

type PollOptionView struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type NewPoll struct {
	PollID   string           `json:"pollId"`
	Question string           `json:"question"`
	Options  []PollOptionView `json:"options"`
}

// OptionResult is one option's share of a poll
type OptionResult struct {
	Text       string `json:"text"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
}

type PollResults struct {
	PollID  string         `json:"pollId"`
	Results []OptionResult `json:"results"`
}

type HandResolved struct {
	ID         string    `json:"id"`
	UserID     uint      `json:"userId"`
	ResolvedBy uint      `json:"resolvedBy"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// Results computes each option's percentage of all votes, rounding half up.
// A poll without votes yields zeros.
func Results(poll models.Poll) []OptionResult {
	total := 0
	for _, opt := range poll.Options {
		total += opt.Votes
	}

	results := make([]OptionResult, len(poll.Options))
	for i, opt := range poll.Options {
		results[i] = OptionResult{Text: opt.Text, Votes: opt.Votes}
		if total > 0 {
			results[i].Percentage = (opt.Votes*200 + total) / (2 * total)
		}
	}
	return results
}
