package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChecksumPending is the placeholder written at upload init. The checksum
// worker replaces it exactly once; a finalized checksum is immutable.
const ChecksumPending = "pending"

type File struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerUserID primitive.ObjectID  `bson:"owner_user_id" json:"ownerUserId"`
	FolderID    *primitive.ObjectID `bson:"folder_id,omitempty" json:"folderId,omitempty"`

	// File info
	Filename         string `bson:"filename" json:"filename" validate:"required,min=1,max=500"`
	OriginalFilename string `bson:"original_filename" json:"originalFilename"`
	SizeBytes        int64  `bson:"size_bytes" json:"sizeBytes" validate:"gte=0"`
	MimeType         string `bson:"mime_type" json:"mimeType"`

	// Storage
	StorageKey     string `bson:"storage_key" json:"-"`
	StorageBucket  string `bson:"storage_bucket" json:"-"`
	ChecksumSHA256 string `bson:"checksum_sha256" json:"checksumSha256"`

	// Version control
	Version      int                 `bson:"version" json:"version"`
	ParentFileID *primitive.ObjectID `bson:"parent_file_id,omitempty" json:"parentFileId,omitempty"`

	Status FileStatus `bson:"status" json:"status"`

	// Processing flags, set by background workers
	OCRCompleted bool   `bson:"ocr_completed" json:"ocrCompleted"`
	OCRText      string `bson:"ocr_text,omitempty" json:"-"`
	ThumbnailKey string `bson:"thumbnail_key,omitempty" json:"thumbnailKey,omitempty"`

	// User metadata
	Tags        []string `bson:"tags,omitempty" json:"tags,omitempty"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`

	AccessedAt *time.Time `bson:"accessed_at,omitempty" json:"accessedAt,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updatedAt"`
	DeletedAt  *time.Time `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
}

type FileStatus string

const (
	FileStatusUploading FileStatus = "uploading"
	FileStatusUploaded  FileStatus = "uploaded"
	FileStatusHidden    FileStatus = "hidden"
)

// Deleted reports whether the file has been soft-deleted. Shares referencing
// a deleted file stay historically valid but admit no new views.
func (f *File) Deleted() bool {
	return f.DeletedAt != nil
}
