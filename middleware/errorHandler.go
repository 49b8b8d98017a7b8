package middleware

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"eduvibe/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type errorBody struct {
	Status     string            `json:"status"`
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
	Stack      string            `json:"stack,omitempty"`
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// toApiError maps any handler error onto an ApiError
func toApiError(err error) *utils.ApiError {
	if apiErr, ok := utils.AsApiError(err); ok {
		return apiErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusBadRequest:
			return utils.BadRequest(fiberErr.Message)
		case fiber.StatusUnauthorized:
			return utils.Unauthorized(fiberErr.Message)
		case fiber.StatusForbidden:
			return utils.Forbidden(fiberErr.Message)
		case fiber.StatusNotFound:
			return utils.NotFound(fiberErr.Message)
		case fiber.StatusConflict:
			return utils.Conflict(fiberErr.Message)
		case fiber.StatusTooManyRequests:
			return utils.TooManyRequests(fiberErr.Message)
		case fiber.StatusUnprocessableEntity:
			return utils.NewApiError(utils.KindValidation, string(utils.KindValidation), fiberErr.Message)
		}
		if fiberErr.Code < fiber.StatusInternalServerError {
			return &utils.ApiError{Kind: utils.KindBadRequest, Code: fmt.Sprint(fiberErr.Code), Message: fiberErr.Message}
		}
		return utils.Internal(fiberErr.Message, err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFound("Resource not found")
	}
	if isDuplicateKey(err) {
		return utils.Conflict("Resource already exists").Wrap(err)
	}

	return utils.Internal("Internal server error", err)
}

// ErrorHandler renders every error returned by a handler as
// {status, statusCode, message, errors?, stack?}. The stack is only
// included in development.
func ErrorHandler(log *zap.Logger, development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		apiErr := toApiError(err)
		code := apiErr.StatusCode()

		// fiber errors below 500 keep their own status
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
			code = fiberErr.Code
		}

		body := errorBody{
			Status:     apiErr.Status(),
			StatusCode: code,
			Message:    apiErr.Message,
			Errors:     apiErr.Errors,
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
			if development {
				body.Stack = string(debug.Stack())
			}
		} else {
			log.Debug("request rejected",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.String("message", apiErr.Message))
		}

		return c.Status(code).JSON(body)
	}
}
