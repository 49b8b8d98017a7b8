package courseController

import (
	"context"
	"errors"
	"strings"

	"eduvibe/middleware"
	"eduvibe/models"
	"eduvibe/utils"
	courseValidator "eduvibe/validators/course"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCourseNotFound = utils.NewApiError(utils.KindNotFound, "CourseNotFound", "Course not found")
	ErrNotCourseOwner = utils.NewApiError(utils.KindForbidden, "NotCourseOwner", "Only the course teacher can change this course")
)

type Controller struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) *Controller {
	return &Controller{db: db, log: log.Named("course")}
}

func (cc *Controller) load(ctx context.Context, c *fiber.Ctx) (*models.Course, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return nil, utils.BadRequest("Invalid course id!")
	}

	var course models.Course
	err = cc.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, utils.Internal("Failed to fetch course details", err)
	}
	return &course, nil
}

func (cc *Controller) loadOwned(c *fiber.Ctx) (*models.Course, error) {
	course, err := cc.load(c.UserContext(), c)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != middleware.UserID(c) {
		return nil, ErrNotCourseOwner
	}
	return course, nil
}

// GetCourses lists courses newest first with optional search and filters
func (cc *Controller) GetCourses(c *fiber.Ctx) error {
	reqData := c.Locals("validatedList").(*courseValidator.CourseListRequest)

	db := cc.db.WithContext(c.UserContext()).Model(&models.Course{}).Where("is_deleted = ?", false)
	if reqData.Category != "" {
		db = db.Where("category = ?", reqData.Category)
	}
	if reqData.Search != "" {
		db = db.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(reqData.Search)+"%")
	}
	if reqData.TeacherID != 0 {
		db = db.Where("teacher_id = ?", reqData.TeacherID)
	}
	if reqData.Published != nil {
		db = db.Where("is_published = ?", *reqData.Published)
	}

	// Get total count
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return utils.Internal("Failed to fetch courses", err)
	}

	var courses []models.Course
	offset := (reqData.Page - 1) * reqData.Limit
	if err := db.Offset(offset).Limit(reqData.Limit).Order("created_at desc").Find(&courses).Error; err != nil {
		return utils.Internal("Failed to fetch courses", err)
	}

	pages := (total + int64(reqData.Limit) - 1) / int64(reqData.Limit)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
		"courses": courses,
		"pagination": fiber.Map{
			"total": total,
			"page":  reqData.Page,
			"limit": reqData.Limit,
			"pages": pages,
		},
	})
}

func (cc *Controller) GetCourse(c *fiber.Ctx) error {
	course, err := cc.load(c.UserContext(), c)
	if err != nil {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", course)
}

func (cc *Controller) CreateCourse(c *fiber.Ctx) error {
	reqData := c.Locals("validatedCourse").(*courseValidator.CreateCourseRequest)

	course := models.Course{
		Title:        reqData.Title,
		Description:  reqData.Description,
		ThumbnailURL: reqData.ThumbnailURL,
		TeacherID:    middleware.UserID(c),
		Category:     reqData.Category,
		Price:        reqData.Price,
		IsPublished:  reqData.IsPublished,
	}
	if err := cc.db.WithContext(c.UserContext()).Create(&course).Error; err != nil {
		return utils.Internal("Failed to create course", err)
	}

	cc.log.Info("course created", zap.Uint("courseId", course.ID), zap.Uint("teacherId", course.TeacherID))
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

func (cc *Controller) UpdateCourse(c *fiber.Ctx) error {
	reqData := c.Locals("validatedCourseUpdate").(*courseValidator.UpdateCourseRequest)

	course, err := cc.loadOwned(c)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if reqData.Title != nil {
		updates["title"] = strings.TrimSpace(*reqData.Title)
	}
	if reqData.Description != nil {
		updates["description"] = strings.TrimSpace(*reqData.Description)
	}
	if reqData.ThumbnailURL != nil {
		updates["thumbnail_url"] = strings.TrimSpace(*reqData.ThumbnailURL)
	}
	if reqData.Category != nil {
		updates["category"] = *reqData.Category
	}
	if reqData.Price != nil {
		updates["price"] = *reqData.Price
	}
	if reqData.IsPublished != nil {
		updates["is_published"] = *reqData.IsPublished
	}

	if err := cc.db.WithContext(c.UserContext()).Model(course).Updates(updates).Error; err != nil {
		return utils.Internal("Failed to update course", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated successfully!", course)
}

// DeleteCourse hides the course; rows are never removed
func (cc *Controller) DeleteCourse(c *fiber.Ctx) error {
	course, err := cc.loadOwned(c)
	if err != nil {
		return err
	}

	if err := cc.db.WithContext(c.UserContext()).Model(course).Update("is_deleted", true).Error; err != nil {
		return utils.Internal("Failed to delete course", err)
	}

	cc.log.Info("course deleted", zap.Uint("courseId", course.ID))
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course deleted successfully!", nil)
}
