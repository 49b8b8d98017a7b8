package utils

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"regexp"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
	senderName       = "EDUVIBE-X"
)

var styleBlock = regexp.MustCompile(`(?s)<style.*?</style>`)

// EmailSender delivers one HTML message
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// SendgridMailer posts to the SendGrid v3 mail API
type SendgridMailer struct {
	key  string
	host string
	from *sgmail.Email
	log  *zap.Logger
}

func NewSendgridMailer(key, from string, log *zap.Logger) *SendgridMailer {
	return &SendgridMailer{
		key:  key,
		host: sendgridHost,
		from: sgmail.NewEmail(senderName, from),
		log:  log,
	}
}

// WithHost points the mailer at another API host
func (m *SendgridMailer) WithHost(host string) *SendgridMailer {
	m.host = host
	return m
}

func (m *SendgridMailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	msg := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail("", to), stripTags(htmlBody), htmlBody)

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		m.log.Error("sending email", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.log.Error("sending email rejected",
			zap.String("to", to),
			zap.Int("status", res.StatusCode),
			zap.String("body", res.Body))
		return fmt.Errorf("send email: provider returned %d", res.StatusCode)
	}

	m.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// smtpMessage builds an RFC 5322 message. Header lines end in CRLF.
func smtpMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	fmt.Fprintf(&b, "From: %s <%s>\r\n", senderName, from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n\r\n", subject)
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// SMTPMailer is the fallback when no SendGrid key is configured
type SMTPMailer struct {
	host     string
	port     string
	from     string
	password string
	log      *zap.Logger
}

func NewSMTPMailer(host, port, from, password string, log *zap.Logger) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, from: from, password: password, log: log}
}

func (m *SMTPMailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	msg := smtpMessage(m.from, to, subject, htmlBody)
	auth := smtp.PlainAuth("", m.from, m.password, m.host)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			m.log.Error("sending email over smtp", zap.String("to", to), zap.Error(err))
			return fmt.Errorf("send email: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}

	m.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// LogMailer only logs. Used in development without credentials.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendEmail(_ context.Context, to, subject, htmlBody string) error {
	m.log.Info("email (not sent, no provider configured)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("text", stripTags(htmlBody)))
	return nil
}

// GetEmailTemplate wraps body content in the branded layout
func GetEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #3B1E8C; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #222222; line-height: 1.6; }
			.code { font-size: 36px; letter-spacing: 8px; text-align: center; color: #3B1E8C; margin: 24px 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>EDUVIBE-X</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				Do not share this code with anyone. EDUVIBE-X staff will never ask for it.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// stripTags gives a rough plain text alternative for the HTML part
func stripTags(html string) string {
	html = styleBlock.ReplaceAllString(html, "")
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
