package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type jobRepository struct {
	*BaseRepository
}

// NewJobRepository creates a new job repository
func NewJobRepository(mongodb *MongoDB) JobRepository {
	return &jobRepository{
		BaseRepository: NewBaseRepository(mongodb, "jobs", pkg.ErrInternalServer),
	}
}

func (r *jobRepository) Create(ctx context.Context, job *models.Job) error {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, job)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	job.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	var job models.Job
	if err := r.BaseRepository.GetByID(ctx, id, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) MarkProcessing(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.BaseRepository.Update(ctx, bson.M{"_id": id}, map[string]interface{}{
		"status":     models.JobStatusProcessing,
		"started_at": at,
	})
}

func (r *jobRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.BaseRepository.Update(ctx, bson.M{"_id": id}, map[string]interface{}{
		"status":       models.JobStatusCompleted,
		"completed_at": at,
	})
}

func (r *jobRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, at time.Time, attempts int, errMsg string) error {
	return r.BaseRepository.Update(ctx, bson.M{"_id": id}, map[string]interface{}{
		"status":       models.JobStatusFailed,
		"completed_at": at,
		"attempts":     attempts,
		"error":        errMsg,
	})
}

func (r *jobRepository) ListByFile(ctx context.Context, fileID primitive.ObjectID) ([]*models.Job, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"file_id": fileID},
		options.Find().SetSort(bson.M{"created_at": -1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []*models.Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs: %w", err)
	}
	return jobs, nil
}
