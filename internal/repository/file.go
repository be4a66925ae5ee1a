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

type fileRepository struct {
	*BaseRepository
}

// NewFileRepository creates a new file repository
func NewFileRepository(mongodb *MongoDB) FileRepository {
	return &fileRepository{
		BaseRepository: NewBaseRepository(mongodb, "files", pkg.ErrFileNotFound),
	}
}

func (r *fileRepository) Create(ctx context.Context, file *models.File) error {
	now := time.Now()
	file.CreatedAt = now
	file.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	file.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *fileRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.File, error) {
	var file models.File
	if err := r.BaseRepository.GetByID(ctx, id, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) GetOwned(ctx context.Context, ownerID, id primitive.ObjectID) (*models.File, error) {
	var file models.File
	err := r.collection.FindOne(ctx, bson.M{
		"_id":           id,
		"owner_user_id": ownerID,
		"deleted_at":    nil,
	}).Decode(&file)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

func (r *fileRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return r.BaseRepository.Update(ctx, bson.M{"_id": id, "deleted_at": nil}, updates)
}

func (r *fileRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, folderID *primitive.ObjectID, params *pkg.PaginationParams) ([]*models.File, int64, error) {
	filter := bson.M{
		"owner_user_id": ownerID,
		"deleted_at":    nil,
		"status":        models.FileStatusUploaded,
	}
	if folderID != nil {
		filter["folder_id"] = *folderID
	}
	if params.Search != "" {
		filter["$or"] = []bson.M{
			{"filename": bson.M{"$regex": params.Search, "$options": "i"}},
			{"tags": bson.M{"$regex": params.Search, "$options": "i"}},
		}
	}

	var files []*models.File
	total, err := r.List(ctx, filter, params, &files)
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

func (r *fileRepository) ListStaleUploading(ctx context.Context, before time.Time, limit int64) ([]*models.File, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"status":     models.FileStatusUploading,
		"deleted_at": nil,
		"created_at": bson.M{"$lt": before},
	}, options.Find().SetLimit(limit).SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list stale uploads: %w", err)
	}
	defer cursor.Close(ctx)

	var files []*models.File
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode stale uploads: %w", err)
	}
	return files, nil
}

func (r *fileRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.FileStatus) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from, "deleted_at": nil},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition file status: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *fileRepository) SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "deleted_at": nil},
		bson.M{"$set": bson.M{"deleted_at": at, "updated_at": at}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete file: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *fileRepository) FinalizeChecksum(ctx context.Context, id primitive.ObjectID, checksum string) error {
	// Only the pending placeholder can be replaced. A second finalize
	// matches nothing and is a silent no-op.
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "checksum_sha256": models.ChecksumPending},
		bson.M{"$set": bson.M{"checksum_sha256": checksum, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to finalize checksum: %w", err)
	}
	return nil
}

func (r *fileRepository) DetachFolder(ctx context.Context, folderID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"folder_id": folderID},
		bson.M{"$set": bson.M{"folder_id": nil, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to detach files from folder: %w", err)
	}
	return nil
}
