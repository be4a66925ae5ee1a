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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type shareRepository struct {
	*BaseRepository
}

// NewShareRepository creates a new share repository
func NewShareRepository(mongodb *MongoDB) ShareRepository {
	return &shareRepository{
		BaseRepository: NewBaseRepository(mongodb, "shares", pkg.ErrShareNotFound),
	}
}

func (r *shareRepository) Create(ctx context.Context, share *models.Share) error {
	now := time.Now()
	share.CreatedAt = now
	share.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, share)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkg.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to create share: %w", err)
	}

	share.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *shareRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Share, error) {
	var share models.Share
	if err := r.BaseRepository.GetByID(ctx, id, &share); err != nil {
		return nil, err
	}
	return &share, nil
}

func (r *shareRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Share, error) {
	var share models.Share
	err := r.collection.FindOne(ctx, bson.M{"transaction_id": transactionID}).Decode(&share)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to get share by transaction ID: %w", err)
	}
	return &share, nil
}

func (r *shareRepository) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	var share models.Share
	err := r.collection.FindOne(ctx, bson.M{"share_token": token}).Decode(&share)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to get share by token: %w", err)
	}
	return &share, nil
}

func (r *shareRepository) ListBySender(ctx context.Context, senderID primitive.ObjectID, params *pkg.PaginationParams) ([]*models.Share, int64, error) {
	filter := bson.M{"sender_user_id": senderID}
	if params.Search != "" {
		filter["$or"] = []bson.M{
			{"recipient_email": bson.M{"$regex": params.Search, "$options": "i"}},
			{"recipient_name": bson.M{"$regex": params.Search, "$options": "i"}},
			{"transaction_id": bson.M{"$regex": params.Search, "$options": "i"}},
		}
	}

	var shares []*models.Share
	total, err := r.List(ctx, filter, params, &shares)
	if err != nil {
		return nil, 0, err
	}
	return shares, total, nil
}

func (r *shareRepository) ListByRecipient(ctx context.Context, recipientID primitive.ObjectID, email string, params *pkg.PaginationParams) ([]*models.Share, int64, error) {
	// Shares addressed before the recipient registered carry only the email.
	filter := bson.M{"$or": []bson.M{
		{"recipient_user_id": recipientID},
		{"recipient_email": email},
	}}

	var shares []*models.Share
	total, err := r.List(ctx, filter, params, &shares)
	if err != nil {
		return nil, 0, err
	}
	return shares, total, nil
}

func (r *shareRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ShareStatusSent},
		bson.M{"$set": bson.M{
			"status":       models.ShareStatusDelivered,
			"delivered_at": at,
			"updated_at":   at,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark share delivered: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *shareRepository) RegisterView(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Share, error) {
	// One guarded FindOneAndUpdate: the filter admits only viewable shares,
	// the pipeline increments the counter, stamps the timeline and advances
	// the status, so concurrent viewers each consume exactly one view.
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$nin": bson.A{models.ShareStatusFailed, models.ShareStatusRevoked}},
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"expires_at": bson.M{"$exists": false}},
				bson.M{"expires_at": nil},
				bson.M{"expires_at": bson.M{"$gt": at}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"max_views": bson.M{"$lte": 0}},
				bson.M{"max_views": bson.M{"$exists": false}},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$view_count", "$max_views"}}},
			}},
		},
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"view_count":      bson.M{"$add": bson.A{"$view_count", 1}},
			"status":          models.ShareStatusViewed,
			"first_viewed_at": bson.M{"$ifNull": bson.A{"$first_viewed_at", at}},
			"last_viewed_at":  at,
			"updated_at":      at,
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var share models.Share
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&share)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to register view: %w", err)
	}
	return &share, nil
}

func (r *shareRepository) Revoke(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": bson.M{"$nin": bson.A{models.ShareStatusFailed, models.ShareStatusRevoked}},
		},
		bson.M{"$set": bson.M{
			"status":     models.ShareStatusRevoked,
			"revoked_at": at,
			"updated_at": at,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to revoke share: %w", err)
	}
	return result.ModifiedCount == 1, nil
}
