package videoValidator

import (
	"regexp"

	"eduvibe/middleware"
	"eduvibe/models"
	"eduvibe/utils"
	"eduvibe/validators"

	"github.com/gofiber/fiber/v2"
)

// videoIDPattern keeps ids safe to splice into a file name
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

type ProgressRequest struct {
	Timestamp *float64 `json:"timestamp" validate:"required,gte=0"`
	Duration  float64  `json:"duration" validate:"gte=0"`
}

func validQuality(q string) bool {
	for _, v := range models.VideoQualities {
		if v == q {
			return true
		}
	}
	return false
}

// VideoParams checks :videoId and, when the route has one, :quality
func VideoParams() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)

		videoID := c.Params("videoId")
		if !videoIDPattern.MatchString(videoID) {
			errors["videoId"] = "Invalid video id!"
		}

		quality := c.Params("quality")
		if quality != "" && !validQuality(quality) {
			errors["quality"] = "Quality must be one of 360p, 480p, 720p, 1080p!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("videoId", videoID)
		c.Locals("quality", quality)
		return c.Next()
	}
}

func Progress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ProgressRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}

		errors := validators.Struct(reqData)
		if errors == nil && reqData.Duration > 0 && *reqData.Timestamp > reqData.Duration {
			errors = map[string]string{"timestamp": "Timestamp cannot exceed the duration!"}
		}
		if errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedProgress", reqData)
		return c.Next()
	}
}
