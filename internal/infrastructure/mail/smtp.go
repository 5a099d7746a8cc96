package mail

import (
	"context"
	"fmt"

	usecase "backoffice/boilerplate/internal/usecase/auth"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	client   *gomail.Client
	from     string
	fromName string
}

// NewSMTPMailer builds a client for cfg. No connection is opened until Send.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, fromName: cfg.FromName}, nil
}

var _ usecase.Mailer = (*SMTPMailer)(nil)

// Send delivers a single HTML message.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
