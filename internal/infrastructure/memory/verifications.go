package memory

import (
	"context"
	"sync"

	"backoffice/boilerplate/internal/domain/auth"
)

// VerificationRepository keeps reset codes in insertion order.
type VerificationRepository struct {
	mu    sync.Mutex
	codes []auth.VerificationCode
}

// NewVerificationRepository returns an empty repository.
func NewVerificationRepository() *VerificationRepository {
	return &VerificationRepository{}
}

var _ auth.VerificationRepository = (*VerificationRepository)(nil)

// Create appends code and purges entries already expired when code was created.
func (r *VerificationRepository) Create(ctx context.Context, code *auth.VerificationCode) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.codes[:0]
	for _, c := range r.codes {
		if !c.Expired(code.CreatedAt) {
			kept = append(kept, c)
		}
	}
	r.codes = append(kept, *code)
	return nil
}

// Find returns the most recent matching code.
func (r *VerificationRepository) Find(ctx context.Context, userID, code string) (*auth.VerificationCode, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.codes) - 1; i >= 0; i-- {
		c := r.codes[i]
		if c.UserID == userID && c.Code == code {
			return &c, nil
		}
	}
	return nil, auth.ErrCodeNotFound
}

// DeleteByUser removes every code of userID.
func (r *VerificationRepository) DeleteByUser(ctx context.Context, userID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.codes[:0]
	for _, c := range r.codes {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	r.codes = kept
	return nil
}
