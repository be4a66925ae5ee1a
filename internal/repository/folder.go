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

type folderRepository struct {
	*BaseRepository
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(mongodb *MongoDB) FolderRepository {
	return &folderRepository{
		BaseRepository: NewBaseRepository(mongodb, "folders", pkg.ErrFolderNotFound),
	}
}

func (r *folderRepository) Create(ctx context.Context, folder *models.Folder) error {
	now := time.Now()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, folder)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	folder.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *folderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Folder, error) {
	var folder models.Folder
	if err := r.BaseRepository.GetByID(ctx, id, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (r *folderRepository) GetOwned(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Folder, error) {
	var folder models.Folder
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "owner_user_id": ownerID}).Decode(&folder)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return &folder, nil
}

func (r *folderRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return r.BaseRepository.Update(ctx, bson.M{"_id": id}, updates)
}

func (r *folderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if result.DeletedCount == 0 {
		return pkg.ErrFolderNotFound
	}
	return nil
}

func (r *folderRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.FolderWithCount, error) {
	// Join live file counts in the same query the listing renders from.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_user_id": ownerID}}},
		{{Key: "$sort", Value: bson.M{"position": 1}}},
		{{Key: "$lookup", Value: bson.M{
			"from": "files",
			"let":  bson.M{"folderId": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$folder_id", "$$folderId"}},
					bson.M{"$eq": bson.A{"$deleted_at", nil}},
				}}}},
				bson.M{"$count": "count"},
			},
			"as": "file_counts",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"file_count": bson.M{"$ifNull": bson.A{
				bson.M{"$arrayElemAt": bson.A{"$file_counts.count", 0}},
				0,
			}},
		}}},
		{{Key: "$project", Value: bson.M{"file_counts": 0}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer cursor.Close(ctx)

	var folders []*models.FolderWithCount
	if err := cursor.All(ctx, &folders); err != nil {
		return nil, fmt.Errorf("failed to decode folders: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]*models.Folder, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"parent_folder_id": parentID},
		options.Find().SetSort(bson.M{"position": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}
	defer cursor.Close(ctx)

	var folders []*models.Folder
	if err := cursor.All(ctx, &folders); err != nil {
		return nil, fmt.Errorf("failed to decode child folders: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) MaxPosition(ctx context.Context, ownerID primitive.ObjectID) (int, bool, error) {
	var folder models.Folder
	err := r.collection.FindOne(ctx,
		bson.M{"owner_user_id": ownerID},
		options.FindOne().SetSort(bson.M{"position": -1}),
	).Decode(&folder)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get max folder position: %w", err)
	}
	return folder.Position, true, nil
}

func (r *folderRepository) CompactPositions(ctx context.Context, ownerID primitive.ObjectID, abovePosition int) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"owner_user_id": ownerID, "position": bson.M{"$gt": abovePosition}},
		bson.M{"$inc": bson.M{"position": -1}},
	)
	if err != nil {
		return fmt.Errorf("failed to compact folder positions: %w", err)
	}
	return nil
}
