package liveclass

import (
	"context"
	"strings"

	"eduvibe/models"
	"eduvibe/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func findPoll(class *models.LiveClass, pollID string) int {
	for i := range class.Polls {
		if class.Polls[i].ID == pollID {
			return i
		}
	}
	return -1
}

// CreatePoll opens a poll with zeroed options
func (e *Engine) CreatePoll(ctx context.Context, id, requester uint, question string, options []string) (*models.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, utils.BadRequest("Question is required")
	}
	if len(options) < 2 {
		return nil, utils.BadRequest("A poll needs at least two options")
	}

	opts := make([]models.PollOption, len(options))
	for i, text := range options {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, utils.BadRequest("Poll options cannot be empty")
		}
		opts[i] = models.PollOption{Text: text, Voters: []uint{}}
	}

	var poll models.Poll
	_, err := e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireOwner(class, requester); err != nil {
			return nil, err
		}
		if err := requireLive(class); err != nil {
			return nil, err
		}
		if !class.Settings.PollsEnabled {
			return nil, ErrPollsDisabled
		}

		poll = models.Poll{
			ID:        uuid.NewString(),
			Question:  question,
			Options:   opts,
			IsActive:  true,
			CreatedAt: e.now(),
		}
		class.Polls = append(class.Polls, poll)

		views := make([]PollOptionView, len(opts))
		for i, o := range opts {
			views[i] = PollOptionView{Text: o.Text}
		}
		return func() {
			e.hub.Emit(Room(id), EventNewPoll, NewPoll{PollID: poll.ID, Question: question, Options: views})
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

// Vote records userID's single vote on a poll and publishes the new split
func (e *Engine) Vote(ctx context.Context, id uint, pollID string, userID uint, optionIndex int) ([]OptionResult, error) {
	var results []OptionResult
	_, err := e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireLive(class); err != nil {
			return nil, err
		}
		i := findPoll(class, pollID)
		if i < 0 {
			return nil, ErrPollNotFound
		}
		poll := &class.Polls[i]
		if !poll.IsActive {
			return nil, ErrPollInactive
		}
		if optionIndex < 0 || optionIndex >= len(poll.Options) {
			return nil, utils.BadRequest("Invalid option index")
		}
		for _, opt := range poll.Options {
			for _, voter := range opt.Voters {
				if voter == userID {
					return nil, ErrAlreadyVoted
				}
			}
		}

		opt := &poll.Options[optionIndex]
		opt.Votes++
		opt.Voters = append(opt.Voters, userID)

		results = Results(*poll)
		return func() {
			e.hub.Emit(Room(id), EventPollResults, PollResults{PollID: pollID, Results: results})
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ClosePoll stops voting on a poll
func (e *Engine) ClosePoll(ctx context.Context, id uint, pollID string, requester uint) ([]OptionResult, error) {
	var results []OptionResult
	_, err := e.mutate(ctx, id, func(class *models.LiveClass) (func(), error) {
		if err := requireOwner(class, requester); err != nil {
			return nil, err
		}
		i := findPoll(class, pollID)
		if i < 0 {
			return nil, ErrPollNotFound
		}
		poll := &class.Polls[i]
		if !poll.IsActive {
			return nil, ErrPollInactive
		}

		ended := e.now()
		poll.IsActive = false
		poll.EndedAt = &ended

		results = Results(*poll)
		return func() {
			e.hub.Emit(Room(id), EventPollClosed, PollResults{PollID: pollID, Results: results})
			e.log.Info("poll closed", zap.Uint("classId", id), zap.String("pollId", pollID))
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
