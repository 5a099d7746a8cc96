package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice/boilerplate/internal/domain/auth"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository persists users in the users collection.
type UserRepository struct {
	col *mongo.Collection
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(usersCollection)}
}

var _ auth.UserRepository = (*UserRepository)(nil)

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByID fetches a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    updatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*auth.User, error) {
	var user auth.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}
