package middleware

import (
	"github.com/gofiber/fiber/v2"

	"eduvibe/utils"
)

// RequireRoles only lets users whose token userType is one of roles through.
// Must run after JWTMiddleware.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == 0 {
			return utils.Unauthorized("Unauthorized: User ID not found")
		}

		userType := UserType(c)
		for _, role := range roles {
			if userType == role {
				return c.Next()
			}
		}

		return utils.Forbidden("You do not have permission to access this resource!")
	}
}
