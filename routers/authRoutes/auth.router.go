package authRoutes

import (
	authControllers "eduvibe/controllers/auth"
	"eduvibe/middleware"
	authValidators "eduvibe/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(api fiber.Router, ctrl *authControllers.Controller, tokens *middleware.TokenIssuer) {
	authGroup := api.Group("/auth")

	authGroup.Post("/signup", authValidators.Signup(), ctrl.Signup)
	authGroup.Post("/login", authValidators.Login(), ctrl.Login)
	authGroup.Post("/verify-otp", authValidators.VerifyOTP(), ctrl.VerifyOTP)
	authGroup.Post("/resend-otp", authValidators.ResendOTP(), ctrl.ResendOTP)
	authGroup.Post("/verify-aadhar", authValidators.VerifyAadhar(), ctrl.VerifyAadhar)
	authGroup.Post("/refresh-token", authValidators.RefreshToken(), ctrl.RefreshToken)
	authGroup.Post("/logout", middleware.JWTMiddleware(tokens), ctrl.Logout)
	authGroup.Get("/verification-status", middleware.JWTMiddleware(tokens), ctrl.VerificationStatus)
}
