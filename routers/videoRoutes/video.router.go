package videoRoutes

import (
	controllers "eduvibe/controllers/video"
	"eduvibe/middleware"
	validators "eduvibe/validators/video"

	"github.com/gofiber/fiber/v2"
)

func SetupVideoRoutes(api fiber.Router, ctrl *controllers.Controller, tokens *middleware.TokenIssuer) {
	videoGroup := api.Group("/videos", middleware.JWTMiddleware(tokens))

	// route params are only visible to route handlers, so the param
	// check is attached per route
	videoGroup.Get("/:videoId/qualities", validators.VideoParams(), ctrl.GetVideoQualities)
	videoGroup.Get("/:videoId/stream/:quality", validators.VideoParams(), ctrl.StreamVideo)
	videoGroup.Get("/:videoId/download/:quality", validators.VideoParams(), ctrl.DownloadVideo)
	videoGroup.Get("/:videoId/progress", validators.VideoParams(), ctrl.GetWatchProgress)
	videoGroup.Post("/:videoId/progress", validators.VideoParams(), validators.Progress(), ctrl.UpdateWatchProgress)
}
