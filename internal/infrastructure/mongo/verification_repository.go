package mongo

import (
	"context"
	"errors"
	"fmt"

	"backoffice/boilerplate/internal/domain/auth"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VerificationRepository stores reset codes; a TTL index reaps expired ones.
type VerificationRepository struct {
	col *mongo.Collection
}

// NewVerificationRepository constructs the repository.
func NewVerificationRepository(db *mongo.Database) *VerificationRepository {
	return &VerificationRepository{col: db.Collection(verificationsCollection)}
}

var _ auth.VerificationRepository = (*VerificationRepository)(nil)

// Create inserts code.
func (r *VerificationRepository) Create(ctx context.Context, code *auth.VerificationCode) error {
	if _, err := r.col.InsertOne(ctx, code); err != nil {
		return fmt.Errorf("insert verification code: %w", err)
	}
	return nil
}

// Find returns the newest code matching (userID, code).
func (r *VerificationRepository) Find(ctx context.Context, userID, code string) (*auth.VerificationCode, error) {
	var v auth.VerificationCode
	err := r.col.FindOne(ctx,
		bson.M{"user_id": userID, "code": code},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrCodeNotFound
		}
		return nil, fmt.Errorf("find verification code: %w", err)
	}
	return &v, nil
}

// DeleteByUser removes every code of userID.
func (r *VerificationRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("delete verification codes: %w", err)
	}
	return nil
}
