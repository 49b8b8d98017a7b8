// Package aadhar checks identity claims against the external Aadhar
// verification authority.
package aadhar

import (
	"context"
	"regexp"
	"time"

	"eduvibe/utils"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var aadharFormat = regexp.MustCompile(`^\d{12}$`)

var (
	ErrInvalidFormat = utils.NewApiError(utils.KindBadRequest, "InvalidAadharFormat", "Invalid Aadhar number format")
	ErrUpstream      = utils.NewApiError(utils.KindInternal, "AadharUnavailable", "Aadhar verification failed")
)

const (
	MethodAPI         = "api"
	MethodDevelopment = "development"
)

// Verifier answers whether a number belongs to the named person. Method
// names how the answer was reached, for audit rows.
type Verifier interface {
	Verify(ctx context.Context, number, name, dob string) (bool, error)
	Details(ctx context.Context, number string) (*Details, error)
	Method() string
}

// Details is the authority's view of a number
type Details struct {
	Verified     bool   `json:"verified"`
	LastVerified string `json:"lastVerified,omitempty"`
	Method       string `json:"verificationMethod,omitempty"`
}

type verifyRequest struct {
	AadharNumber string `json:"aadharNumber"`
	Name         string `json:"name"`
	DOB          string `json:"dob"`
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	Status   string `json:"status"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// ValidFormat reports whether number is exactly 12 digits
func ValidFormat(number string) bool {
	return aadharFormat.MatchString(number)
}

// Client talks to the authority over HTTPS with a bearer key
type Client struct {
	client   *resty.Client
	simulate bool
	log      *zap.Logger
}

// NewClient builds a client for baseURL. With simulate set no request is
// made and every well formed number is accepted.
func NewClient(baseURL, apiKey string, timeout time.Duration, simulate bool, log *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &Client{client: client, simulate: simulate, log: log}
}

func (c *Client) Method() string {
	if c.simulate {
		return MethodDevelopment
	}
	return MethodAPI
}

func (c *Client) Verify(ctx context.Context, number, name, dob string) (bool, error) {
	if c.simulate {
		if !ValidFormat(number) {
			return false, ErrInvalidFormat
		}
		c.log.Debug("aadhar verification simulated", zap.String("aadhar", utils.MaskAadhar(number)))
		return true, nil
	}

	var result verifyResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(verifyRequest{AadharNumber: number, Name: name, DOB: dob}).
		SetResult(&result).
		Post("/verify")
	if err != nil {
		c.log.Error("aadhar verification failed", zap.String("aadhar", utils.MaskAadhar(number)), zap.Error(err))
		return false, ErrUpstream.Wrap(err)
	}
	if resp.IsError() {
		c.log.Error("aadhar verification rejected",
			zap.String("aadhar", utils.MaskAadhar(number)),
			zap.Int("status", resp.StatusCode()))
		return false, ErrUpstream
	}

	c.log.Info("aadhar verification response",
		zap.String("aadhar", utils.MaskAadhar(number)),
		zap.String("status", result.Status))

	return result.Verified, nil
}

// Details fetches what the authority knows about number
func (c *Client) Details(ctx context.Context, number string) (*Details, error) {
	if c.simulate {
		if !ValidFormat(number) {
			return nil, ErrInvalidFormat
		}
		return &Details{
			Verified:     true,
			LastVerified: time.Now().UTC().Format(time.RFC3339),
			Method:       MethodDevelopment,
		}, nil
	}

	var details Details
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&details).
		SetPathParam("number", number).
		Get("/details/{number}")
	if err != nil {
		return nil, ErrUpstream.Wrap(err)
	}
	if resp.IsError() {
		return nil, ErrUpstream
	}
	return &details, nil
}

// CheckStatus reports whether the authority answers "up"
func (c *Client) CheckStatus(ctx context.Context) bool {
	if c.simulate {
		return true
	}
	var status statusResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/status")
	if err != nil || resp.IsError() {
		c.log.Warn("aadhar api status check failed", zap.Error(err))
		return false
	}
	return status.Status == "up"
}
