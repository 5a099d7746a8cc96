// Package memory provides process-local store implementations used for
// development and tests. Data is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"backoffice/boilerplate/internal/domain/auth"
)

// UserRepository keeps users in a map guarded by a mutex.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]auth.User
	byEmail map[string]string
}

// NewUserRepository returns an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]auth.User),
		byEmail: make(map[string]string),
	}
}

var _ auth.UserRepository = (*UserRepository)(nil)

// Create stores user, rejecting a duplicate email.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return auth.ErrEmailExists
	}
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

// GetByEmail looks a user up by its normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u := r.byID[id]
	return &u, nil
}

// GetByID looks a user up by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	r.byID[id] = u
	return nil
}
