package liveClassController

import (
	"eduvibe/middleware"
	"eduvibe/models"
	"eduvibe/services/liveclass"
	liveClassValidator "eduvibe/validators/liveClass"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller exposes the live session engine over REST
type Controller struct {
	engine *liveclass.Engine
	log    *zap.Logger
}

func New(engine *liveclass.Engine, log *zap.Logger) *Controller {
	return &Controller{engine: engine, log: log.Named("liveClass")}
}

func classID(c *fiber.Ctx) uint {
	id, _ := c.Locals("classId").(uint)
	return id
}

// ClassView adds the live viewer count to a stored class
type ClassView struct {
	*models.LiveClass
	ViewerCount int `json:"viewerCount"`
}

func (lc *Controller) CreateLiveClass(c *fiber.Ctx) error {
	reqData := c.Locals("validatedLiveClass").(*liveClassValidator.CreateLiveClassRequest)

	class, err := lc.engine.Create(c.UserContext(), middleware.UserID(c), reqData.Input())
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Live class created successfully", class)
}

func (lc *Controller) ListLiveClasses(c *fiber.Ctx) error {
	reqData := c.Locals("validatedList").(*liveClassValidator.LiveClassListRequest)
	filter := reqData.Filter()

	classes, total, err := lc.engine.List(c.UserContext(), filter)
	if err != nil {
		return err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Live classes fetched successfully", fiber.Map{
		"liveClasses": classes,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

func (lc *Controller) GetLiveClass(c *fiber.Ctx) error {
	class, err := lc.engine.Get(c.UserContext(), classID(c))
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Live class fetched successfully", ClassView{
		LiveClass:   class,
		ViewerCount: lc.engine.ViewerCount(class.ID),
	})
}

func (lc *Controller) StartLiveClass(c *fiber.Ctx) error {
	class, err := lc.engine.Start(c.UserContext(), classID(c), middleware.UserID(c))
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Live class started successfully", class)
}

func (lc *Controller) EndLiveClass(c *fiber.Ctx) error {
	class, err := lc.engine.End(c.UserContext(), classID(c), middleware.UserID(c))
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Live class ended successfully", class)
}

func (lc *Controller) CancelLiveClass(c *fiber.Ctx) error {
	class, err := lc.engine.Cancel(c.UserContext(), classID(c), middleware.UserID(c))
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Live class cancelled successfully", class)
}

func (lc *Controller) JoinLiveClass(c *fiber.Ctx) error {
	reqData := c.Locals("validatedJoin").(*liveClassValidator.JoinRequest)

	class, err := lc.engine.Join(c.UserContext(), classID(c), middleware.UserID(c), reqData.Role)
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Joined live class successfully", fiber.Map{
		"streamUrl":  class.StreamURL,
		"maxQuality": class.MaxQuality,
		"settings":   class.Settings,
		"room":       liveclass.Room(class.ID),
	})
}

func (lc *Controller) LeaveLiveClass(c *fiber.Ctx) error {
	if _, err := lc.engine.Leave(c.UserContext(), classID(c), middleware.UserID(c)); err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Left live class successfully", nil)
}

func (lc *Controller) GrantModerator(c *fiber.Ctx) error {
	userID, _ := c.Locals("participantId").(uint)

	participant, err := lc.engine.GrantModerator(c.UserContext(), classID(c), middleware.UserID(c), userID)
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Moderator granted successfully", participant)
}

func (lc *Controller) CreatePoll(c *fiber.Ctx) error {
	reqData := c.Locals("validatedPoll").(*liveClassValidator.CreatePollRequest)

	poll, err := lc.engine.CreatePoll(c.UserContext(), classID(c), middleware.UserID(c), reqData.Question, reqData.Options)
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Poll created successfully", poll)
}

func (lc *Controller) SubmitPollVote(c *fiber.Ctx) error {
	reqData := c.Locals("validatedVote").(*liveClassValidator.VoteRequest)

	results, err := lc.engine.Vote(c.UserContext(), classID(c), c.Params("pollId"), middleware.UserID(c), *reqData.OptionIndex)
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Vote submitted successfully", fiber.Map{"results": results})
}

func (lc *Controller) ClosePoll(c *fiber.Ctx) error {
	results, err := lc.engine.ClosePoll(c.UserContext(), classID(c), c.Params("pollId"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Poll closed successfully", fiber.Map{"results": results})
}

// HandRaise toggles unless the body names the state explicitly
func (lc *Controller) HandRaise(c *fiber.Ctx) error {
	reqData := c.Locals("validatedHandRaise").(*liveClassValidator.HandRaiseRequest)
	ctx := c.UserContext()

	var (
		event *models.HandRaise
		err   error
	)
	if reqData.Raised != nil {
		event, err = lc.engine.SetHandRaise(ctx, classID(c), middleware.UserID(c), reqData.Username, *reqData.Raised)
	} else {
		event, err = lc.engine.ToggleHandRaise(ctx, classID(c), middleware.UserID(c), reqData.Username)
	}
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Hand raise updated successfully", event)
}

func (lc *Controller) ResolveHandRaise(c *fiber.Ctx) error {
	event, err := lc.engine.ResolveHandRaise(c.UserContext(), classID(c), c.Params("raiseId"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Hand raise resolved successfully", event)
}

func (lc *Controller) PostChat(c *fiber.Ctx) error {
	reqData := c.Locals("validatedChat").(*liveClassValidator.ChatRequest)

	msg, err := lc.engine.PostChat(c.UserContext(), classID(c), middleware.UserID(c), reqData.Username, reqData.Content)
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Message sent successfully", msg)
}
