package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fileflow/fileflow/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB client wrapper
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect establishes connection to MongoDB
func Connect(uri, dbName string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m := &MongoDB{
		client:   client,
		database: client.Database(dbName),
	}

	if err := m.createIndexes(); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return m, nil
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Collection returns a collection instance
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// createIndexes creates all necessary indexes. transaction_id and
// share_token carry the uniqueness guarantees the share engine relies on.
func (m *MongoDB) createIndexes() error {
	ctx := context.Background()

	userIndexes := []mongo.IndexModel{
		{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"created_at": -1}},
	}
	if _, err := m.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	fileIndexes := []mongo.IndexModel{
		{Keys: bson.M{"owner_user_id": 1, "folder_id": 1}},
		{Keys: bson.M{"storage_key": 1}},
		{Keys: bson.M{"checksum_sha256": 1}},
		{Keys: bson.M{"created_at": -1}},
	}
	if _, err := m.Collection("files").Indexes().CreateMany(ctx, fileIndexes); err != nil {
		return fmt.Errorf("failed to create file indexes: %w", err)
	}

	folderIndexes := []mongo.IndexModel{
		{Keys: bson.M{"owner_user_id": 1, "position": 1}},
		{Keys: bson.M{"parent_folder_id": 1}},
	}
	if _, err := m.Collection("folders").Indexes().CreateMany(ctx, folderIndexes); err != nil {
		return fmt.Errorf("failed to create folder indexes: %w", err)
	}

	shareIndexes := []mongo.IndexModel{
		{Keys: bson.M{"transaction_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"share_token": 1}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.M{"sender_user_id": 1, "created_at": -1}},
		{Keys: bson.M{"recipient_user_id": 1, "created_at": -1}},
		{Keys: bson.M{"recipient_email": 1, "created_at": -1}},
		{Keys: bson.M{"expires_at": 1}},
	}
	if _, err := m.Collection("shares").Indexes().CreateMany(ctx, shareIndexes); err != nil {
		return fmt.Errorf("failed to create share indexes: %w", err)
	}

	jobIndexes := []mongo.IndexModel{
		{Keys: bson.M{"file_id": 1, "created_at": -1}},
		{Keys: bson.M{"status": 1}},
	}
	if _, err := m.Collection("jobs").Indexes().CreateMany(ctx, jobIndexes); err != nil {
		return fmt.Errorf("failed to create job indexes: %w", err)
	}

	return nil
}

// BaseRepository provides common repository functionality
type BaseRepository struct {
	collection *mongo.Collection
	notFound   *pkg.AppError
}

// NewBaseRepository creates a new base repository. notFound is the sentinel
// returned when a lookup or guarded update matches nothing.
func NewBaseRepository(mongodb *MongoDB, collectionName string, notFound *pkg.AppError) *BaseRepository {
	return &BaseRepository{
		collection: mongodb.Collection(collectionName),
		notFound:   notFound,
	}
}

// GetByID retrieves a document by ID
func (r *BaseRepository) GetByID(ctx context.Context, id primitive.ObjectID, result interface{}) error {
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return r.notFound
		}
		return fmt.Errorf("failed to get document by ID: %w", err)
	}
	return nil
}

// Update applies a $set update to documents matching filter
func (r *BaseRepository) Update(ctx context.Context, filter bson.M, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	if result.MatchedCount == 0 {
		return r.notFound
	}

	return nil
}

// List retrieves documents with pagination
func (r *BaseRepository) List(ctx context.Context, filter bson.M, params *pkg.PaginationParams, results interface{}) (int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	opts := options.Find().
		SetSkip(int64(params.GetOffset())).
		SetLimit(int64(params.Limit)).
		SetSort(bson.M{params.Sort: params.GetSortDirection()})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to find documents: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, results); err != nil {
		return 0, fmt.Errorf("failed to decode documents: %w", err)
	}

	return total, nil
}

// NewRepositories creates all repository instances
func NewRepositories(mongodb *MongoDB) *Repository {
	return &Repository{
		User:   NewUserRepository(mongodb),
		File:   NewFileRepository(mongodb),
		Folder: NewFolderRepository(mongodb),
		Share:  NewShareRepository(mongodb),
		Job:    NewJobRepository(mongodb),
	}
}
