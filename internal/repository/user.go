package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(mongodb *MongoDB) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(mongodb, "users", pkg.ErrUserNotFound),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkg.ErrEmailAlreadyTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deleted_at": nil}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email, "deleted_at": nil}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return r.BaseRepository.Update(ctx, bson.M{"_id": id, "deleted_at": nil}, updates)
}

func (r *userRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	return r.BaseRepository.Update(ctx, bson.M{"_id": id, "deleted_at": nil}, map[string]interface{}{
		"deleted_at": now,
		"is_active":  false,
	})
}

func (r *userRepository) ReserveStorage(ctx context.Context, id primitive.ObjectID, size int64) error {
	// The $expr guard and the $inc land in the same document write, so two
	// concurrent reservations can never jointly overshoot the quota.
	filter := bson.M{
		"_id":        id,
		"deleted_at": nil,
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$add": bson.A{"$storage_used_bytes", size}},
			"$storage_quota_bytes",
		}},
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"storage_used_bytes": size},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to reserve storage: %w", err)
	}

	if result.MatchedCount == 0 {
		// Distinguish a missing user from a full ledger.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return pkg.ErrQuotaExceeded
	}
	return nil
}

func (r *userRepository) ReleaseStorage(ctx context.Context, id primitive.ObjectID, size int64) error {
	// Pipeline update so the subtraction floors at zero in a single write.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"storage_used_bytes": bson.M{"$max": bson.A{
				0,
				bson.M{"$subtract": bson.A{"$storage_used_bytes", size}},
			}},
			"updated_at": time.Now(),
		}}},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to release storage: %w", err)
	}
	if result.MatchedCount == 0 {
		return pkg.ErrUserNotFound
	}
	return nil
}
