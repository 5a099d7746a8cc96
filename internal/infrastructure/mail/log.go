// Package mail delivers transactional email through SMTP, the Brevo HTTP API,
// or the application log for local development.
package mail

import (
	"context"

	usecase "backoffice/boilerplate/internal/usecase/auth"

	"go.uber.org/zap"
)

// LogMailer writes outgoing messages to the logger instead of sending them.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer returns a mailer that only logs.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{log: logger.Named("mail")}
}

var _ usecase.Mailer = (*LogMailer)(nil)

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, to, subject, html string) error {
	m.log.Info("email not sent, log driver active",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("html_bytes", len(html)),
	)
	m.log.Debug("email body", zap.String("html", html))
	return nil
}
