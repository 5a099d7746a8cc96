package auth

import (
	"context"

	domain "backoffice/boilerplate/internal/domain/auth"
)

// TokenManager abstracts token issuance and verification.
type TokenManager interface {
	IssueAccessToken(claims domain.Claims) (string, error)
	IssueRefreshToken(claims domain.Claims) (string, error)
	// Verify checks signature and expiry and returns the embedded claims.
	Verify(token string) (domain.Claims, error)
}

// Mailer dispatches a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}
