package authValidator

import (
	"strings"
	"time"

	"eduvibe/middleware"
	"eduvibe/models"
	"eduvibe/utils"
	"eduvibe/validators"

	"github.com/gofiber/fiber/v2"
)

type SignupRequest struct {
	FullName           string `json:"fullName" validate:"required,notblank,max=100"`
	Phone              string `json:"phone" validate:"required,phone10"`
	Email              string `json:"email" validate:"required,email,max=100"`
	DOB                string `json:"dob" validate:"required,isodate"`
	AadharNumber       string `json:"aadharNumber" validate:"required,aadhar"`
	UserType           string `json:"userType" validate:"required,oneof=student teacher parent"`
	ParentName         string `json:"parentName" validate:"required_if=UserType student,max=100"`
	ParentPhone        string `json:"parentPhone" validate:"required_if=UserType student,omitempty,phone10"`
	SelectedGoal       string `json:"selectedGoal" validate:"omitempty,oneof=NEET IIT-JEE SCHOOL_EXAMS"`
	SelectedClass      string `json:"selectedClass" validate:"omitempty,oneof=11 12 DROPPER"`
	Specialization     string `json:"specialization" validate:"max=100"`
	TeachingExperience int    `json:"teachingExperience" validate:"gte=0,lte=60"`

	BirthDate time.Time `json:"-"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,identifier"`
	UserType   string `json:"userType" validate:"required,oneof=student teacher parent"`
}

type VerifyOTPRequest struct {
	Identifier string `json:"identifier" validate:"required,identifier"`
	OTP        string `json:"otp" validate:"required,otp6"`
	UserType   string `json:"userType" validate:"required,oneof=student teacher parent"`
}

type ResendOTPRequest struct {
	Identifier string `json:"identifier" validate:"required,identifier"`
	UserType   string `json:"userType" validate:"required,oneof=student teacher parent"`
	Purpose    string `json:"purpose" validate:"omitempty,oneof=signup login reset"`
}

type VerifyAadharRequest struct {
	AadharNumber string `json:"aadharNumber" validate:"required,aadhar"`
	Name         string `json:"name" validate:"max=100"`
	DOB          string `json:"dob" validate:"omitempty,isodate"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// normalize lower-cases emails and strips spaces from phone identifiers
func normalize(identifier string) string {
	return utils.NormalizeIdentifier(identifier)
}

// Signup validator middleware
func Signup() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(SignupRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		validators.TrimStrings(reqData)
		reqData.Email = strings.ToLower(reqData.Email)

		errors := validators.Struct(reqData)
		if errors == nil {
			errors = make(map[string]string)
		}

		// Validate date of birth
		if _, failed := errors["dob"]; !failed {
			dob, _ := validators.ParseDate(reqData.DOB)
			if !dob.Before(time.Now()) {
				errors["dob"] = "Date of birth must be in the past!"
			}
			reqData.BirthDate = dob
		}

		if reqData.UserType == models.UserTypeStudent && reqData.ParentPhone != "" && reqData.ParentPhone == reqData.Phone {
			errors["parentPhone"] = "Parent phone must differ from the student's phone!"
		}

		// Respond with errors if any exist
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		// Parent details only apply to students
		if reqData.UserType != models.UserTypeStudent {
			reqData.ParentName = ""
			reqData.ParentPhone = ""
		}

		c.Locals("validatedSignup", reqData)
		return c.Next()
	}
}

// Login validator middleware
func Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(LoginRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		reqData.Identifier = normalize(reqData.Identifier)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedLogin", reqData)
		return c.Next()
	}
}

// VerifyOTP validator middleware
func VerifyOTP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(VerifyOTPRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		reqData.Identifier = normalize(reqData.Identifier)
		reqData.OTP = strings.TrimSpace(reqData.OTP)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedVerifyOTP", reqData)
		return c.Next()
	}
}

// ResendOTP validator middleware
func ResendOTP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ResendOTPRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		reqData.Identifier = normalize(reqData.Identifier)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedResendOTP", reqData)
		return c.Next()
	}
}

// VerifyAadhar validator middleware
func VerifyAadhar() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(VerifyAadharRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		validators.TrimStrings(reqData)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedAadhar", reqData)
		return c.Next()
	}
}

// RefreshToken validator middleware
func RefreshToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(RefreshTokenRequest)
		if err := c.BodyParser(reqData); err != nil {
			return utils.BadRequest("Invalid request body!")
		}
		reqData.RefreshToken = strings.TrimSpace(reqData.RefreshToken)

		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedRefresh", reqData)
		return c.Next()
	}
}
