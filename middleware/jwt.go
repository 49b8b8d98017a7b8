package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eduvibe/config"
	"eduvibe/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
	TokenSignup  = "signup"
	TokenLogin   = "login"
)

var (
	ErrMissingToken = utils.NewApiError(utils.KindUnauthorized, "MissingToken", "Missing or invalid Authorization header")
	ErrInvalidToken = utils.NewApiError(utils.KindUnauthorized, "InvalidToken", "Invalid or expired token")
	ErrWrongToken   = utils.NewApiError(utils.KindUnauthorized, "WrongTokenType", "Token cannot be used here")
)

type Claims struct {
	UserID   uint   `json:"userId"`
	UserType string `json:"userType,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenIssuer signs and checks HS256 tokens
type TokenIssuer struct {
	secret []byte
	ttl    map[string]time.Duration
}

func NewTokenIssuer(secret string, access, refresh, session time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl: map[string]time.Duration{
			TokenAccess:  access,
			TokenRefresh: refresh,
			TokenSignup:  session,
			TokenLogin:   session,
		},
	}
}

// NewTokenIssuerFromConfig reads the key and lifetimes from cfg
func NewTokenIssuerFromConfig(cfg *config.Config) *TokenIssuer {
	return NewTokenIssuer(cfg.JWTKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.SignupTokenTTL)
}

// Issue signs a token of tokenType for the user
func (i *TokenIssuer) Issue(userID uint, userType, tokenType string) (string, error) {
	ttl, ok := i.ttl[tokenType]
	if !ok {
		return "", fmt.Errorf("unknown token type %q", tokenType)
	}

	now := time.Now()
	claims := Claims{
		UserID:   userID,
		UserType: userType,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// IssuePair signs a fresh access and refresh token
func (i *TokenIssuer) IssuePair(userID uint, userType string) (*TokenPair, error) {
	access, err := i.Issue(userID, userType, TokenAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := i.Issue(userID, userType, TokenRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Parse validates tokenString and requires its type to be one of types
func (i *TokenIssuer) Parse(tokenString string, types ...string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken.Wrap(err)
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	for _, t := range types {
		if claims.Type == t {
			return claims, nil
		}
	}
	return nil, ErrWrongToken
}

// Authenticate accepts access tokens only. Used by the socket gateway.
func (i *TokenIssuer) Authenticate(tokenString string) (uint, string, error) {
	claims, err := i.Parse(tokenString, TokenAccess)
	if err != nil {
		return 0, "", err
	}
	return claims.UserID, claims.UserType, nil
}

func bearer(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(authHeader[len("Bearer "):]), nil
}

// JWTMiddleware requires a bearer token of one of types (access when
// empty) and stores userId, userType and the claims in Locals.
func JWTMiddleware(issuer *TokenIssuer, types ...string) fiber.Handler {
	if len(types) == 0 {
		types = []string{TokenAccess}
	}
	return func(c *fiber.Ctx) error {
		tokenString, err := bearer(c)
		if err != nil {
			return err
		}

		claims, err := issuer.Parse(tokenString, types...)
		if err != nil {
			var apiErr *utils.ApiError
			if errors.As(err, &apiErr) {
				return apiErr
			}
			return ErrInvalidToken
		}

		c.Locals("userId", claims.UserID)
		c.Locals("userType", claims.UserType)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// UserID reads the id stored by JWTMiddleware
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userId").(uint)
	return id
}

func UserType(c *fiber.Ctx) string {
	t, _ := c.Locals("userType").(string)
	return t
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// ValidationErrorResponse hands field errors to the error handler, which
// renders them as a 422
func ValidationErrorResponse(c *fiber.Ctx, fields map[string]string) error {
	return utils.ValidationFailed(fields)
}
