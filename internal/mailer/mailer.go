// Package mailer sends notification mails over SMTP.
package mailer

import (
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends plain-text mails with an optional attachment.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

// New creates a Mailer.
func New(cfg *Config, logger *slog.Logger) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

// Send delivers one mail. Callers run this detached; a failure is theirs
// to log and swallow.
func (m *Mailer) Send(recipient, subject, body, attachmentPath string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if attachmentPath != "" {
		msg.Attach(attachmentPath)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", recipient, err)
	}

	m.logger.Info("Notification mail sent",
		slog.String("recipient", recipient),
		slog.String("subject", subject),
	)

	return nil
}
