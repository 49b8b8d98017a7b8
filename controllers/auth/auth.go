package authController

import (
	"context"
	"errors"
	"time"

	"eduvibe/middleware"
	"eduvibe/models"
	"eduvibe/services/aadhar"
	"eduvibe/services/otp"
	"eduvibe/utils"
	authValidator "eduvibe/validators/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserExists      = utils.NewApiError(utils.KindConflict, "UserExists", "User already exists with this phone number, email or Aadhar number")
	ErrUserNotFound    = utils.NewApiError(utils.KindNotFound, "UserNotFound", "User not found")
	ErrAadharFailed    = utils.NewApiError(utils.KindBadRequest, "AadharVerificationFailed", "Aadhar verification failed")
	ErrAccountDisabled = utils.NewApiError(utils.KindForbidden, "AccountDisabled", "Account is deactivated")
	ErrInvalidRefresh  = utils.NewApiError(utils.KindUnauthorized, "InvalidRefreshToken", "Invalid refresh token")
)

// UserView is the public shape of a user in auth responses
type UserView struct {
	ID              uint   `json:"id"`
	FullName        string `json:"fullName"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	UserType        string `json:"userType"`
	IsPhoneVerified bool   `json:"isPhoneVerified"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

func viewOf(u *models.User) UserView {
	return UserView{
		ID:              u.ID,
		FullName:        u.FullName,
		Phone:           u.Phone,
		Email:           u.Email,
		UserType:        u.UserType,
		IsPhoneVerified: u.IsPhoneVerified,
		IsEmailVerified: u.IsEmailVerified,
	}
}

type Controller struct {
	db       *gorm.DB
	otps     *otp.Service
	verifier aadhar.Verifier
	tokens   *middleware.TokenIssuer
	log      *zap.Logger
}

func New(db *gorm.DB, otps *otp.Service, verifier aadhar.Verifier, tokens *middleware.TokenIssuer, log *zap.Logger) *Controller {
	return &Controller{db: db, otps: otps, verifier: verifier, tokens: tokens, log: log.Named("auth")}
}

// findUser looks an identifier up as phone or email within a user type
func (ac *Controller) findUser(ctx context.Context, identifier, userType string) (*models.User, error) {
	var user models.User
	err := ac.db.WithContext(ctx).
		Where("(phone = ? OR email = ?) AND user_type = ? AND is_deleted = ?", identifier, identifier, userType, false).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, utils.Internal("Failed to load user", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return &user, nil
}

// audit records an identity check. Failures to write are logged only.
func (ac *Controller) audit(ctx context.Context, userID *uint, number, name string, verified bool) {
	row := models.AadharVerification{
		UserID:       userID,
		MaskedNumber: utils.MaskAadhar(number),
		Name:         name,
		IsVerified:   verified,
		Method:       ac.verifier.Method(),
	}
	if err := ac.db.WithContext(ctx).Create(&row).Error; err != nil {
		ac.log.Warn("aadhar audit write failed", zap.Error(err))
	}
}

func (ac *Controller) Signup(c *fiber.Ctx) error {
	reqData := c.Locals("validatedSignup").(*authValidator.SignupRequest)
	ctx := c.UserContext()
	db := ac.db.WithContext(ctx)

	// Check if user already exists
	var existing int64
	err := db.Model(&models.User{}).
		Where("phone = ? OR email = ? OR aadhar_number = ?", reqData.Phone, reqData.Email, reqData.AadharNumber).
		Count(&existing).Error
	if err != nil {
		return utils.Internal("Failed to Signup user!", err)
	}
	if existing > 0 {
		return ErrUserExists
	}

	verified, err := ac.verifier.Verify(ctx, reqData.AadharNumber, reqData.FullName, reqData.BirthDate.Format("2006-01-02"))
	if err != nil {
		ac.audit(ctx, nil, reqData.AadharNumber, reqData.FullName, false)
		return err
	}
	if !verified {
		ac.audit(ctx, nil, reqData.AadharNumber, reqData.FullName, false)
		return ErrAadharFailed
	}

	// Codes go out before the account exists so a rate limited signup
	// leaves nothing behind
	phoneCode, err := ac.otps.Issue(ctx, reqData.Phone, models.ChannelPhone, models.PurposeSignup)
	if err != nil {
		return err
	}
	emailCode, err := ac.otps.Issue(ctx, reqData.Email, models.ChannelEmail, models.PurposeSignup)
	if err != nil {
		return err
	}

	newUser := models.User{
		FullName:           reqData.FullName,
		Phone:              reqData.Phone,
		Email:              reqData.Email,
		DOB:                reqData.BirthDate,
		AadharNumber:       reqData.AadharNumber,
		UserType:           reqData.UserType,
		ParentName:         reqData.ParentName,
		ParentPhone:        reqData.ParentPhone,
		SelectedGoal:       reqData.SelectedGoal,
		SelectedClass:      reqData.SelectedClass,
		Specialization:     reqData.Specialization,
		TeachingExperience: reqData.TeachingExperience,
		IsAadharVerified:   true,
		IsActive:           true,
	}
	if err := db.Create(&newUser).Error; err != nil {
		return err
	}
	ac.audit(ctx, &newUser.ID, reqData.AadharNumber, reqData.FullName, true)

	token, err := ac.tokens.Issue(newUser.ID, newUser.UserType, middleware.TokenSignup)
	if err != nil {
		return utils.Internal("Failed to Signup user!", err)
	}

	ac.log.Info("user signed up", zap.Uint("userId", newUser.ID), zap.String("userType", newUser.UserType))

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "OTP sent to phone and email", fiber.Map{
		"token": token,
		"user":  viewOf(&newUser),
		"otpDispatched": fiber.Map{
			"phone": phoneCode.Dispatched,
			"email": emailCode.Dispatched,
		},
	})
}

func (ac *Controller) Login(c *fiber.Ctx) error {
	reqData := c.Locals("validatedLogin").(*authValidator.LoginRequest)
	ctx := c.UserContext()

	user, err := ac.findUser(ctx, reqData.Identifier, reqData.UserType)
	if err != nil {
		return err
	}

	issued, err := ac.otps.Issue(ctx, reqData.Identifier, utils.ChannelFor(reqData.Identifier), models.PurposeLogin)
	if err != nil {
		return err
	}

	token, err := ac.tokens.Issue(user.ID, user.UserType, middleware.TokenLogin)
	if err != nil {
		return utils.Internal("Failed to login!", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "OTP sent successfully", fiber.Map{
		"token":         token,
		"otpDispatched": issued.Dispatched,
	})
}

func (ac *Controller) VerifyOTP(c *fiber.Ctx) error {
	reqData := c.Locals("validatedVerifyOTP").(*authValidator.VerifyOTPRequest)
	ctx := c.UserContext()

	user, err := ac.findUser(ctx, reqData.Identifier, reqData.UserType)
	if err != nil {
		return err
	}

	channel := utils.ChannelFor(reqData.Identifier)
	if err := ac.otps.Verify(ctx, reqData.Identifier, channel, reqData.OTP); err != nil {
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{"last_active": now}
	if channel == models.ChannelEmail {
		updates["is_email_verified"] = true
		user.IsEmailVerified = true
	} else {
		updates["is_phone_verified"] = true
		user.IsPhoneVerified = true
	}

	db := ac.db.WithContext(ctx)
	if err := db.Model(user).Updates(updates).Error; err != nil {
		return utils.Internal("Failed to update verification status", err)
	}

	tracking := models.LoginTracking{
		UserID:    user.ID,
		Channel:   channel,
		IPAddress: c.IP(),
		Device:    c.Get(fiber.HeaderUserAgent),
		Timestamp: now,
	}
	if err := db.Create(&tracking).Error; err != nil {
		ac.log.Warn("login tracking write failed", zap.Uint("userId", user.ID), zap.Error(err))
	}

	pair, err := ac.tokens.IssuePair(user.ID, user.UserType)
	if err != nil {
		return utils.Internal("Failed to create session", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "OTP verified successfully", fiber.Map{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         viewOf(user),
	})
}

func (ac *Controller) ResendOTP(c *fiber.Ctx) error {
	reqData := c.Locals("validatedResendOTP").(*authValidator.ResendOTPRequest)
	ctx := c.UserContext()

	user, err := ac.findUser(ctx, reqData.Identifier, reqData.UserType)
	if err != nil {
		return err
	}

	channel := utils.ChannelFor(reqData.Identifier)
	purpose := reqData.Purpose
	if purpose == "" {
		// an unverified channel is still mid signup
		verified := user.IsPhoneVerified
		if channel == models.ChannelEmail {
			verified = user.IsEmailVerified
		}
		purpose = models.PurposeSignup
		if verified {
			purpose = models.PurposeLogin
		}
	}

	issued, err := ac.otps.Issue(ctx, reqData.Identifier, channel, purpose)
	if err != nil {
		return err
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "New OTP sent successfully", fiber.Map{
		"purpose":       purpose,
		"otpDispatched": issued.Dispatched,
	})
}

func (ac *Controller) VerifyAadhar(c *fiber.Ctx) error {
	reqData := c.Locals("validatedAadhar").(*authValidator.VerifyAadharRequest)
	ctx := c.UserContext()

	isValid, err := ac.verifier.Verify(ctx, reqData.AadharNumber, reqData.Name, reqData.DOB)
	ac.audit(ctx, nil, reqData.AadharNumber, reqData.Name, err == nil && isValid)
	if err != nil {
		return err
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Aadhar checked", fiber.Map{"isValid": isValid})
}

func (ac *Controller) RefreshToken(c *fiber.Ctx) error {
	reqData := c.Locals("validatedRefresh").(*authValidator.RefreshTokenRequest)
	ctx := c.UserContext()

	claims, err := ac.tokens.Parse(reqData.RefreshToken, middleware.TokenRefresh)
	if err != nil {
		return ErrInvalidRefresh.Wrap(err)
	}

	var user models.User
	err = ac.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", claims.UserID, false).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return utils.Internal("Failed to refresh token", err)
	}
	if !user.IsActive {
		return ErrAccountDisabled
	}

	accessToken, err := ac.tokens.Issue(user.ID, user.UserType, middleware.TokenAccess)
	if err != nil {
		return utils.Internal("Failed to refresh token", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Token refreshed", fiber.Map{"accessToken": accessToken})
}

// Logout is stateless: tokens expire on their own. It stamps last activity.
func (ac *Controller) Logout(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	err := ac.db.WithContext(c.UserContext()).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_active", time.Now()).Error
	if err != nil {
		ac.log.Warn("logout stamp failed", zap.Uint("userId", userID), zap.Error(err))
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Logged out successfully", nil)
}

func (ac *Controller) VerificationStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var user models.User
	err := ac.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", middleware.UserID(c), false).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return utils.Internal("Failed to fetch verification status", err)
	}

	data := fiber.Map{
		"isPhoneVerified":  user.IsPhoneVerified,
		"isEmailVerified":  user.IsEmailVerified,
		"isAadharVerified": user.IsAadharVerified,
	}

	if user.IsAadharVerified {
		details, err := ac.verifier.Details(ctx, user.AadharNumber)
		if err != nil {
			ac.log.Warn("aadhar details unavailable", zap.Uint("userId", user.ID), zap.Error(err))
		} else {
			data["aadharDetails"] = details
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Verification status fetched", data)
}
