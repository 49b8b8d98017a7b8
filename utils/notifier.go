package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Notifier sends OTP codes and status messages to a phone or email channel
type Notifier interface {
	SendOTP(ctx context.Context, channel, identifier, code, purpose string) error
	Notify(ctx context.Context, channel, identifier, subject, message string) error
}

// Dispatcher routes messages to the SMS or email provider and bounds each
// call with timeout.
type Dispatcher struct {
	sms     SMSSender
	email   EmailSender
	timeout time.Duration
	log     *zap.Logger
}

var ErrUnknownChannel = errors.New("unknown notification channel")

func NewDispatcher(sms SMSSender, email EmailSender, timeout time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sms: sms, email: email, timeout: timeout, log: log}
}

func (d *Dispatcher) SendOTP(ctx context.Context, channel, identifier, code, purpose string) error {
	text := OTPMessage(purpose, code)

	switch channel {
	case "phone":
		return d.send(ctx, channel, identifier, func(ctx context.Context) error {
			return d.sms.SendSMS(ctx, identifier, text)
		})
	case "email":
		subject := OTPSubject(purpose)
		body := GetEmailTemplate(subject, fmt.Sprintf(`
			<p>%s</p>
			<div class="code">%s</div>
		`, text, code))
		return d.send(ctx, channel, identifier, func(ctx context.Context) error {
			return d.email.SendEmail(ctx, identifier, subject, body)
		})
	}
	return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
}

func (d *Dispatcher) Notify(ctx context.Context, channel, identifier, subject, message string) error {
	switch channel {
	case "phone":
		return d.send(ctx, channel, identifier, func(ctx context.Context) error {
			return d.sms.SendSMS(ctx, identifier, message)
		})
	case "email":
		body := GetEmailTemplate(subject, fmt.Sprintf("<p>%s</p>", message))
		return d.send(ctx, channel, identifier, func(ctx context.Context) error {
			return d.email.SendEmail(ctx, identifier, subject, body)
		})
	}
	return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
}

func (d *Dispatcher) send(ctx context.Context, channel, identifier string, fn func(context.Context) error) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	if err != nil {
		d.log.Warn("notification dispatch failed",
			zap.String("channel", channel),
			zap.String("identifier", identifier),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return err
	}
	return nil
}

var titleCaser = cases.Title(language.English)

// OTPSubject is the email subject for a purpose, e.g. "EDUVIBE-X Login Code"
func OTPSubject(purpose string) string {
	if purpose == "signup" {
		return "EDUVIBE-X Verification Code"
	}
	return fmt.Sprintf("EDUVIBE-X %s Code", titleCaser.String(purposeLabel(purpose)))
}

// OTPMessage is the text body sent over SMS and inside emails
func OTPMessage(purpose, code string) string {
	switch purpose {
	case "login":
		return fmt.Sprintf("Your EDUVIBE-X login code is: %s. Valid for 10 minutes.", code)
	case "reset":
		return fmt.Sprintf("Your EDUVIBE-X password reset code is: %s. Valid for 10 minutes.", code)
	default:
		return fmt.Sprintf("Welcome to EDUVIBE-X! Your verification code is: %s. Valid for 10 minutes.", code)
	}
}

func purposeLabel(purpose string) string {
	if purpose == "reset" {
		return "password reset"
	}
	return purpose
}

var istZone = time.FixedZone("IST", 5*60*60+30*60)

// ClassReminderSubject is the email subject of an upcoming class reminder
func ClassReminderSubject(title string) string {
	return "Class Reminder: " + title
}

// ClassReminderMessage lists the class, its start in IST and the teacher
func ClassReminderMessage(title, teacher string, start time.Time) string {
	start = start.In(istZone)
	return fmt.Sprintf("EDUVIBE-X Class Reminder\nSubject: %s\nDate: %s\nTime: %s IST\nTeacher: %s",
		title, start.Format("02 Jan 2006"), start.Format("03:04 PM"), teacher)
}
