package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "backoffice/boilerplate/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository persists one session row per user.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository constructs a repository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

var _ domain.SessionRepository = (*SessionRepository)(nil)

// Upsert inserts or overwrites the session of session.UserID.
func (r *SessionRepository) Upsert(ctx context.Context, s *domain.Session) error {
	const query = `
INSERT INTO sessions (user_id, access_token, refresh_token, refresh_token_expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE
SET access_token = EXCLUDED.access_token,
    refresh_token = EXCLUDED.refresh_token,
    refresh_token_expires_at = EXCLUDED.refresh_token_expires_at,
    updated_at = EXCLUDED.updated_at
`
	_, err := r.pool.Exec(ctx, query, s.UserID, s.AccessToken, s.RefreshToken, s.RefreshTokenExpiresAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// GetByUserID returns the user's session.
func (r *SessionRepository) GetByUserID(ctx context.Context, userID string) (*domain.Session, error) {
	const query = `
SELECT user_id, access_token, refresh_token, refresh_token_expires_at, created_at, updated_at
FROM sessions WHERE user_id = $1
`
	var s domain.Session
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.AccessToken,
		&s.RefreshToken,
		&s.RefreshTokenExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &s, nil
}

// UpdateAccessToken swaps the access token in place.
func (r *SessionRepository) UpdateAccessToken(ctx context.Context, userID, accessToken string, updatedAt time.Time) error {
	const query = `UPDATE sessions SET access_token = $2, updated_at = $3 WHERE user_id = $1`
	ct, err := r.pool.Exec(ctx, query, userID, accessToken, updatedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Delete removes the user's session.
func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
