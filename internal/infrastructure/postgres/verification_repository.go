package postgres

import (
	"context"
	"errors"
	"fmt"

	domain "backoffice/boilerplate/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VerificationRepository persists reset codes.
type VerificationRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationRepository constructs a repository.
func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

var _ domain.VerificationRepository = (*VerificationRepository)(nil)

// Create stores code and purges codes that expired before it was issued.
func (r *VerificationRepository) Create(ctx context.Context, code *domain.VerificationCode) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at < $1`, code.CreatedAt); err != nil {
		return fmt.Errorf("purge verification codes: %w", err)
	}
	const insert = `
INSERT INTO verification_codes (id, user_id, code, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	if _, err := tx.Exec(ctx, insert, code.ID, code.UserID, code.Code, code.ExpiresAt, code.CreatedAt); err != nil {
		return fmt.Errorf("insert verification code: %w", err)
	}
	return tx.Commit(ctx)
}

// Find returns the newest code matching (userID, code).
func (r *VerificationRepository) Find(ctx context.Context, userID, code string) (*domain.VerificationCode, error) {
	const query = `
SELECT id, user_id, code, expires_at, created_at
FROM verification_codes
WHERE user_id = $1 AND code = $2
ORDER BY created_at DESC
LIMIT 1
`
	var v domain.VerificationCode
	err := r.pool.QueryRow(ctx, query, userID, code).Scan(&v.ID, &v.UserID, &v.Code, &v.ExpiresAt, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("select verification code: %w", err)
	}
	return &v, nil
}

// DeleteByUser removes every code of userID.
func (r *VerificationRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM verification_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete verification codes: %w", err)
	}
	return nil
}
