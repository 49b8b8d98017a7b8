package liveClassValidator

import (
	"strings"

	"eduvibe/middleware"
	"eduvibe/services/liveclass"
	"eduvibe/utils"
	"eduvibe/validators"

	"github.com/gofiber/fiber/v2"
)

type SettingsRequest struct {
	ChatEnabled      *bool `json:"chatEnabled"`
	HandRaiseEnabled *bool `json:"handRaiseEnabled"`
	PollsEnabled     *bool `json:"pollsEnabled"`
	RecordingEnabled *bool `json:"recordingEnabled"`
	ParticipantLimit *int  `json:"participantLimit" validate:"omitempty,min=1,max=1000"`
}

type CreateLiveClassRequest struct {
	Title              string           `json:"title" validate:"required,notblank,max=200"`
	Description        string           `json:"description" validate:"max=5000"`
	CourseID           uint             `json:"courseId" validate:"required"`
	ScheduledStartTime string           `json:"scheduledStartTime" validate:"required,isodate"`
	StreamURL          string           `json:"streamUrl" validate:"omitempty,url"`
	MaxQuality         string           `json:"maxQuality" validate:"omitempty,oneof=360p 480p 720p 1080p"`
	Settings           *SettingsRequest `json:"settings"`
}

// Input converts the request into the engine's create input
func (r *CreateLiveClassRequest) Input() liveclass.CreateInput {
	start, _ := validators.ParseDate(r.ScheduledStartTime)
	in := liveclass.CreateInput{
		Title:              r.Title,
		Description:        r.Description,
		CourseID:           r.CourseID,
		ScheduledStartTime: start,
		StreamURL:          r.StreamURL,
		MaxQuality:         r.MaxQuality,
	}
	if r.Settings != nil {
		in.Settings = &liveclass.SettingsInput{
			ChatEnabled:      r.Settings.ChatEnabled,
			HandRaiseEnabled: r.Settings.HandRaiseEnabled,
			PollsEnabled:     r.Settings.PollsEnabled,
			RecordingEnabled: r.Settings.RecordingEnabled,
			ParticipantLimit: r.Settings.ParticipantLimit,
		}
	}
	return in
}

type LiveClassListRequest struct {
	CourseID  uint   `query:"courseId"`
	TeacherID uint   `query:"teacherId"`
	Status    string `query:"status" validate:"omitempty,oneof=SCHEDULED LIVE ENDED CANCELLED"`
	Date      string `query:"date" validate:"omitempty,isodate"`
	Page      int    `query:"page" validate:"gte=0"`
	Limit     int    `query:"limit" validate:"gte=0,lte=100"`
}

// Filter converts the query into the engine's list filter
func (r *LiveClassListRequest) Filter() liveclass.Filter {
	f := liveclass.Filter{
		CourseID:  r.CourseID,
		TeacherID: r.TeacherID,
		Status:    r.Status,
		Page:      r.Page,
		Limit:     r.Limit,
	}
	if r.Date != "" {
		day, _ := validators.ParseDate(r.Date)
		f.Day = &day
	}
	return f
}

// JoinRequest keeps the role for older clients. The engine assigns the
// actual role, so it only has to be a known one.
type JoinRequest struct {
	Role string `json:"role" validate:"omitempty,oneof=TEACHER STUDENT MODERATOR"`
}

type CreatePollRequest struct {
	Question string   `json:"question" validate:"required,notblank,max=500"`
	Options  []string `json:"options" validate:"required,min=2,max=10,dive,notblank,max=200"`
}

type VoteRequest struct {
	OptionIndex *int `json:"optionIndex" validate:"required,min=0"`
}

type HandRaiseRequest struct {
	Username string `json:"username" validate:"max=100"`
	Raised   *bool  `json:"raised"`
}

type ChatRequest struct {
	Username string `json:"username" validate:"max=100"`
	Content  string `json:"content" validate:"required,notblank,max=1000"`
}

// ClassID validates the :classId route parameter
func ClassID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("classId")
		if err != nil || id < 1 {
			return middleware.ValidationErrorResponse(c, map[string]string{"classId": "Class ID must be a positive integer!"})
		}
		c.Locals("classId", uint(id))
		return c.Next()
	}
}

// ParticipantID validates the :userId route parameter
func ParticipantID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("userId")
		if err != nil || id < 1 {
			return middleware.ValidationErrorResponse(c, map[string]string{"userId": "User ID must be a positive integer!"})
		}
		c.Locals("participantId", uint(id))
		return c.Next()
	}
}

func CreateLiveClass() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateLiveClassRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		validators.TrimStrings(reqData)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedLiveClass", reqData)
		return c.Next()
	}
}

func LiveClassList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(LiveClassListRequest)
		if err := c.QueryParser(reqData); err != nil {
			return utils.BadRequest("Invalid query parameters!")
		}
		validators.TrimStrings(reqData)
		reqData.Status = strings.ToUpper(reqData.Status)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedList", reqData)
		return c.Next()
	}
}

// JoinLiveClass accepts an empty body
func JoinLiveClass() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(JoinRequest)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return utils.BadRequest("Invalid request body!")
			}
		}
		reqData.Role = strings.ToUpper(strings.TrimSpace(reqData.Role))

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedJoin", reqData)
		return c.Next()
	}
}

func CreatePoll() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreatePollRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		reqData.Question = strings.TrimSpace(reqData.Question)
		for i := range reqData.Options {
			reqData.Options[i] = strings.TrimSpace(reqData.Options[i])
		}

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedPoll", reqData)
		return c.Next()
	}
}

func Vote() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(VoteRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedVote", reqData)
		return c.Next()
	}
}

// HandRaise accepts an empty body, which toggles
func HandRaise() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(HandRaiseRequest)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return utils.BadRequest("Invalid request body!")
			}
		}
		reqData.Username = strings.TrimSpace(reqData.Username)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedHandRaise", reqData)
		return c.Next()
	}
}

func Chat() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ChatRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		validators.TrimStrings(reqData)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedChat", reqData)
		return c.Next()
	}
}

