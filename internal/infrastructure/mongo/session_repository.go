package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice/boilerplate/internal/domain/auth"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionRepository keeps one session document per user.
type SessionRepository struct {
	col *mongo.Collection
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{col: db.Collection(sessionsCollection)}
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// Upsert creates or replaces the token pair of session.UserID atomically.
func (r *SessionRepository) Upsert(ctx context.Context, session *auth.Session) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": session.UserID},
		bson.M{
			"$set": bson.M{
				"access_token":             session.AccessToken,
				"refresh_token":            session.RefreshToken,
				"refresh_token_expires_at": session.RefreshTokenExpiresAt,
				"updated_at":               session.UpdatedAt,
			},
			"$setOnInsert": bson.M{"created_at": session.CreatedAt},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// GetByUserID returns the user's session.
func (r *SessionRepository) GetByUserID(ctx context.Context, userID string) (*auth.Session, error) {
	var s auth.Session
	if err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &s, nil
}

// UpdateAccessToken swaps the access token in place.
func (r *SessionRepository) UpdateAccessToken(ctx context.Context, userID, accessToken string, updatedAt time.Time) error {
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"access_token": accessToken, "updated_at": updatedAt}},
	).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return auth.ErrSessionNotFound
		}
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// Delete removes the user's session.
func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}
