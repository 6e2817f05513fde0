// Package email delivers notification emails over SMTP. The notification
// module renders message content; this package wraps it in the HTML layout
// and sends it.
package email

import (
	"context"

	"propertyops_backend/platform/config"
	"propertyops_backend/platform/logger"
)

// Sender delivers notification emails.
type Sender interface {
	// SendNotificationEmail sends a single notification. BodyHTML is
	// pre-rendered message content, not a full document.
	SendNotificationEmail(ctx context.Context, toEmail, subject, heading, bodyHTML string) error
}

// NewSender builds the configured sender. When email delivery is disabled the
// returned sender logs instead of sending, so the rest of the pipeline keeps
// working in development.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return &LogSender{log: log}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

// LogSender writes the email to the log instead of delivering it.
type LogSender struct {
	log *logger.Logger
}

func (s *LogSender) SendNotificationEmail(_ context.Context, toEmail, subject, _, _ string) error {
	s.log.Info("email delivery disabled; dropping message", "to", toEmail, "subject", subject)
	return nil
}
