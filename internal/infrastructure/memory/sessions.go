package memory

import (
	"context"
	"sync"
	"time"

	"backoffice/boilerplate/internal/domain/auth"
)

// SessionRepository keeps one session per user.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
}

// NewSessionRepository returns an empty repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]auth.Session)}
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// Upsert replaces any existing session of session.UserID.
func (r *SessionRepository) Upsert(ctx context.Context, session *auth.Session) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[session.UserID]; ok {
		s := *session
		s.CreatedAt = existing.CreatedAt
		r.sessions[session.UserID] = s
		return nil
	}
	r.sessions[session.UserID] = *session
	return nil
}

// GetByUserID returns the user's session.
func (r *SessionRepository) GetByUserID(ctx context.Context, userID string) (*auth.Session, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return &s, nil
}

// UpdateAccessToken swaps the access token in place.
func (r *SessionRepository) UpdateAccessToken(ctx context.Context, userID, accessToken string, updatedAt time.Time) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return auth.ErrSessionNotFound
	}
	s.AccessToken = accessToken
	s.UpdatedAt = updatedAt
	r.sessions[userID] = s
	return nil
}

// Delete removes the user's session.
func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; !ok {
		return auth.ErrSessionNotFound
	}
	delete(r.sessions, userID)
	return nil
}
