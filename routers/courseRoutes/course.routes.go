package courseRoutes

import (
	controllers "eduvibe/controllers/course"
	"eduvibe/middleware"
	"eduvibe/models"
	validators "eduvibe/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes registers the public catalog and the teacher-only writes
func SetupCourseRoutes(api fiber.Router, ctrl *controllers.Controller, tokens *middleware.TokenIssuer) {
	courseGroup := api.Group("/courses")

	// Public listing and details
	courseGroup.Get("/", validators.CourseList(), ctrl.GetCourses)
	courseGroup.Get("/:id", ctrl.GetCourse)

	// Teacher management
	jwt := middleware.JWTMiddleware(tokens)
	teacherOnly := middleware.RequireRoles(models.UserTypeTeacher)
	courseGroup.Post("/", jwt, teacherOnly, validators.CreateCourse(), ctrl.CreateCourse)
	courseGroup.Put("/:id", jwt, teacherOnly, validators.UpdateCourse(), ctrl.UpdateCourse)
	courseGroup.Delete("/:id", jwt, teacherOnly, ctrl.DeleteCourse)
}
