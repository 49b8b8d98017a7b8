package liveClassRoutes

import (
	controllers "eduvibe/controllers/liveClass"
	"eduvibe/middleware"
	"eduvibe/models"
	validators "eduvibe/validators/liveClass"

	"github.com/gofiber/fiber/v2"
)

func SetupLiveClassRoutes(api fiber.Router, ctrl *controllers.Controller, tokens *middleware.TokenIssuer) {
	classGroup := api.Group("/live-classes", middleware.JWTMiddleware(tokens))

	classGroup.Post("/", middleware.RequireRoles(models.UserTypeTeacher), validators.CreateLiveClass(), ctrl.CreateLiveClass)
	classGroup.Get("/", validators.LiveClassList(), ctrl.ListLiveClasses)
	classGroup.Get("/:classId", validators.ClassID(), ctrl.GetLiveClass)

	// Lifecycle, owner checks happen in the engine
	classGroup.Post("/:classId/start", validators.ClassID(), ctrl.StartLiveClass)
	classGroup.Post("/:classId/end", validators.ClassID(), ctrl.EndLiveClass)
	classGroup.Post("/:classId/cancel", validators.ClassID(), ctrl.CancelLiveClass)

	// Roster
	classGroup.Post("/:classId/join", validators.ClassID(), validators.JoinLiveClass(), ctrl.JoinLiveClass)
	classGroup.Post("/:classId/leave", validators.ClassID(), ctrl.LeaveLiveClass)
	classGroup.Post("/:classId/participants/:userId/moderator", validators.ClassID(), validators.ParticipantID(), ctrl.GrantModerator)

	// Polls
	classGroup.Post("/:classId/polls", validators.ClassID(), validators.CreatePoll(), ctrl.CreatePoll)
	classGroup.Post("/:classId/polls/:pollId/vote", validators.ClassID(), validators.Vote(), ctrl.SubmitPollVote)
	classGroup.Post("/:classId/polls/:pollId/close", validators.ClassID(), ctrl.ClosePoll)

	// Hand raise and chat
	classGroup.Post("/:classId/hand-raise", validators.ClassID(), validators.HandRaise(), ctrl.HandRaise)
	classGroup.Post("/:classId/hand-raise/:raiseId/resolve", validators.ClassID(), ctrl.ResolveHandRaise)
	classGroup.Post("/:classId/chat", validators.ClassID(), validators.Chat(), ctrl.PostChat)
}
