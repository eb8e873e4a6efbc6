// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/resendlabs/resend-go"
	"github.com/sirupsen/logrus"

	"github.com/homedar/homedar-backend/internal/config"
	"github.com/homedar/homedar-backend/internal/models"
)

// EmailSender delivers transactional mail. Delivery failures are the
// caller's to decide on; the OTP flows log and continue so a mail outage
// cannot take down signup.
type EmailSender interface {
	Send(to, subject, htmlBody string) error
}

// ResendSender sends mail through the Resend API.
type ResendSender struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

func NewResendSender(cfg config.EmailConfig) *ResendSender {
	return &ResendSender{
		client:    resend.NewClient(cfg.ResendAPIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (s *ResendSender) Send(to, subject, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail),
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	if _, err := s.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email sent")
	return nil
}

// LogSender is the development stand-in: it logs instead of delivering, so
// the flows work without a Resend key.
type LogSender struct{}

func (LogSender) Send(to, subject, htmlBody string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email delivery skipped (no API key configured)")
	return nil
}

// NewEmailSender picks the real sender when a key is configured and the
// log-only one otherwise.
func NewEmailSender(cfg config.EmailConfig) EmailSender {
	if cfg.ResendAPIKey == "" {
		return LogSender{}
	}
	return NewResendSender(cfg)
}

var otpEmailTemplate = template.Must(template.New("otp").Parse(`
<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">
  <h2>{{.Heading}}</h2>
  <p>Use the code below to {{.Action}}. It expires in 10 minutes.</p>
  <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold;">{{.Code}}</p>
  <p style="color: #666;">If you did not request this, you can safely ignore this email.</p>
</div>
`))

type otpEmailData struct {
	Heading string
	Action  string
	Code    string
}

// SendOTPEmail renders and delivers the verification-code mail for the given
// purpose.
func SendOTPEmail(sender EmailSender, to string, purpose models.OTPPurpose, code string) error {
	data := otpEmailData{Code: code}
	var subject string

	switch purpose {
	case models.OTPPurposePasswordReset:
		subject = "Reset your password"
		data.Heading = "Password reset"
		data.Action = "reset your password"
	default:
		subject = "Verify your email"
		data.Heading = "Email verification"
		data.Action = "finish creating your account"
	}

	var body bytes.Buffer
	if err := otpEmailTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}
	return sender.Send(to, subject, body.String())
}
