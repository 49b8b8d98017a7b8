package courseValidator

import (
	"eduvibe/middleware"
	"eduvibe/utils"
	"eduvibe/validators"

	"github.com/gofiber/fiber/v2"
)

type CreateCourseRequest struct {
	Title        string  `json:"title" validate:"required,notblank,min=3,max=200"`
	Description  string  `json:"description" validate:"max=5000"`
	ThumbnailURL string  `json:"thumbnailUrl" validate:"omitempty,url"`
	Category     string  `json:"category" validate:"required,oneof=NEET IIT-JEE SCHOOL_EXAMS OLYMPIADS"`
	Price        float64 `json:"price" validate:"gte=0"`
	IsPublished  bool    `json:"isPublished"`
}

type UpdateCourseRequest struct {
	Title        *string  `json:"title" validate:"omitempty,notblank,min=3,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=5000"`
	ThumbnailURL *string  `json:"thumbnailUrl" validate:"omitempty,url"`
	Category     *string  `json:"category" validate:"omitempty,oneof=NEET IIT-JEE SCHOOL_EXAMS OLYMPIADS"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	IsPublished  *bool    `json:"isPublished"`
}

type CourseListRequest struct {
	Search    string `query:"search" validate:"max=100"`
	Category  string `query:"category" validate:"omitempty,oneof=NEET IIT-JEE SCHOOL_EXAMS OLYMPIADS"`
	TeacherID uint   `query:"teacherId"`
	Published *bool  `query:"published"`
	Page      int    `query:"page" validate:"gte=0"`
	Limit     int    `query:"limit" validate:"gte=0,lte=100"`
}

func CreateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateCourseRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		validators.TrimStrings(reqData)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

func UpdateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(UpdateCourseRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}

		errors := validators.Struct(reqData)
		if errors == nil {
			errors = make(map[string]string)
		}
		if reqData.Title == nil && reqData.Description == nil && reqData.ThumbnailURL == nil &&
			reqData.Category == nil && reqData.Price == nil && reqData.IsPublished == nil {
			errors["body"] = "At least one field must be provided!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCourseUpdate", reqData)
		return c.Next()
	}
}

func CourseList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CourseListRequest)
		if err := c.QueryParser(reqData); err != nil {
			return utils.BadRequest("Invalid query parameters!")
		}
		validators.TrimStrings(reqData)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		if reqData.Page < 1 {
			reqData.Page = 1
		}
		if reqData.Limit < 1 {
			reqData.Limit = 10
		}

		c.Locals("validatedList", reqData)
		return c.Next()
	}
}
