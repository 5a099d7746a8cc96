package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	usecase "backoffice/boilerplate/internal/usecase/auth"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// BrevoMailer sends mail through the Brevo transactional API.
type BrevoMailer struct {
	apiKey     string
	fromEmail  string
	fromName   string
	endpoint   string
	httpClient *http.Client
}

// NewBrevoMailer returns a client for the Brevo API.
func NewBrevoMailer(apiKey, fromEmail, fromName string) *BrevoMailer {
	return &BrevoMailer{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   fromName,
		endpoint:   brevoAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ usecase.Mailer = (*BrevoMailer)(nil)

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// Send posts one message to Brevo.
func (m *BrevoMailer) Send(ctx context.Context, to, subject, html string) error {
	if to == "" || subject == "" || html == "" {
		return errors.New("recipient, subject and html content cannot be empty")
	}

	body, err := json.Marshal(brevoRequest{
		Sender:      brevoAddress{Email: m.fromEmail, Name: m.fromName},
		To:          []brevoAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
	})
	if err != nil {
		return fmt.Errorf("marshal brevo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build brevo request: %w", err)
	}
	req.Header.Set("api-key", m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
