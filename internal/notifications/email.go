package notifications

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/logger"
)

// EmailSender delivers notification emails over SMTP. Disabled unless
// email delivery is configured.
type EmailSender struct {
	config *config.NotificationConfig
	logger *logger.Logger
}

// NewEmailSender creates a new email sender
func NewEmailSender(cfg *config.NotificationConfig, log *logger.Logger) *EmailSender {
	return &EmailSender{
		config: cfg,
		logger: log,
	}
}

// Send delivers an email to a single recipient. Returns nil without
// sending when email delivery is disabled.
func (e *EmailSender) Send(to, subject, body string) error {
	if !e.config.EmailEnabled {
		return nil
	}

	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}

	msg := strings.Join([]string{
		"From: " + e.config.FromAddress,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", e.config.SMTPHost, e.config.SMTPPort)

	var auth smtp.Auth
	if e.config.SMTPUser != "" {
		auth = smtp.PlainAuth("", e.config.SMTPUser, e.config.SMTPPassword, e.config.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, e.config.FromAddress, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.WithField("to", to).Debug("Notification email sent")
	return nil
}
