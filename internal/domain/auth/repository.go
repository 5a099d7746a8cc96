package auth

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for auth users.
// Lookups return ErrUserNotFound when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// SessionRepository persists the single active session per user.
type SessionRepository interface {
	// Upsert creates or overwrites the session for session.UserID.
	Upsert(ctx context.Context, session *Session) error
	// GetByUserID returns ErrSessionNotFound when the user has no session.
	GetByUserID(ctx context.Context, userID string) (*Session, error)
	UpdateAccessToken(ctx context.Context, userID, accessToken string, updatedAt time.Time) error
	Delete(ctx context.Context, userID string) error
}

// VerificationRepository persists password reset codes.
type VerificationRepository interface {
	Create(ctx context.Context, code *VerificationCode) error
	// Find returns the most recent code for (userID, code) or ErrCodeNotFound.
	Find(ctx context.Context, userID, code string) (*VerificationCode, error)
	DeleteByUser(ctx context.Context, userID string) error
}
