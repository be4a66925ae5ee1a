package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Job is the persisted record of one background task. The triggering request
// never waits on it; failures land in Error/Status instead of the response.
type Job struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type        JobType            `bson:"type" json:"type"`
	Status      JobStatus          `bson:"status" json:"status"`
	FileID      primitive.ObjectID `bson:"file_id" json:"fileId"`
	StorageKey  string             `bson:"storage_key" json:"storageKey"`
	MimeType    string             `bson:"mime_type" json:"mimeType"`
	Attempts    int                `bson:"attempts" json:"attempts"`
	MaxAttempts int                `bson:"max_attempts" json:"maxAttempts"`
	Error       string             `bson:"error,omitempty" json:"error,omitempty"`
	StartedAt   *time.Time         `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

type JobType string

const (
	JobTypeFileChecksum      JobType = "file_checksum"
	JobTypeFileOCR           JobType = "file_ocr"
	JobTypeThumbnailGenerate JobType = "thumbnail_generate"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)
