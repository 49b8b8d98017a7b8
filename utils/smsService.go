package utils

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var nonDigits = regexp.MustCompile(`\D`)

// SMSSender delivers a single text message
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Fast2SMS sends through the fast2sms bulkV2 quick route
type Fast2SMS struct {
	client   *resty.Client
	apiURL   string
	senderID string
	log      *zap.Logger
}

type fast2smsResponse struct {
	Return    bool        `json:"return"`
	RequestID string      `json:"request_id"`
	Message   interface{} `json:"message"`
}

func NewFast2SMS(apiURL, apiKey, senderID string, timeout time.Duration, log *zap.Logger) *Fast2SMS {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("authorization", apiKey).
		SetHeader("accept", "application/json")

	return &Fast2SMS{client: client, apiURL: apiURL, senderID: senderID, log: log}
}

func (s *Fast2SMS) SendSMS(ctx context.Context, to, message string) error {
	number := FormatIndianMobile(to)

	var result fast2smsResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"route":     "q",
			"sender_id": s.senderID,
			"message":   message,
			"numbers":   number,
			"flash":     "0",
		}).
		SetResult(&result).
		Post(s.apiURL)
	if err != nil {
		s.log.Error("sms request failed", zap.String("to", number), zap.Error(err))
		return fmt.Errorf("send sms: %w", err)
	}

	if resp.IsError() || !result.Return {
		s.log.Error("sms rejected by provider",
			zap.String("to", number),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return fmt.Errorf("send sms: provider returned %d", resp.StatusCode())
	}

	s.log.Info("sms sent", zap.String("to", number), zap.String("requestId", result.RequestID))
	return nil
}

// FormatIndianMobile strips formatting and the 91 country prefix
func FormatIndianMobile(number string) string {
	cleaned := nonDigits.ReplaceAllString(number, "")
	if len(cleaned) == 12 && strings.HasPrefix(cleaned, "91") {
		return cleaned[2:]
	}
	return cleaned
}

// LogSMS only logs. Used when no provider key is configured.
type LogSMS struct {
	log *zap.Logger
}

func NewLogSMS(log *zap.Logger) *LogSMS {
	return &LogSMS{log: log}
}

func (s *LogSMS) SendSMS(_ context.Context, to, message string) error {
	s.log.Info("sms (not sent, no provider configured)", zap.String("to", to), zap.String("message", message))
	return nil
}
