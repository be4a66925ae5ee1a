package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobQueue dispatches background work. Submission returns immediately; the
// triggering request never waits on the job and never sees its failure.
type JobQueue interface {
	Enqueue(ctx context.Context, jobType models.JobType, file *models.File) error
}

const (
	presignUploadExpiry   = 15 * time.Minute
	presignDownloadExpiry = 15 * time.Minute
)

// FileService owns file metadata, upload lifecycle and the quota coupling:
// bytes are reserved against the owner's ledger before an upload begins and
// released exactly once on delete.
type FileService struct {
	fileRepo  repository.FileRepository
	userRepo  repository.UserRepository
	storage   StorageProvider
	queue     JobQueue
	validator *pkg.Validator
	logger    *pkg.Logger
	bucket    string
	maxSize   int64
	now       func() time.Time
}

// NewFileService creates a new file service
func NewFileService(
	fileRepo repository.FileRepository,
	userRepo repository.UserRepository,
	storage StorageProvider,
	queue JobQueue,
	validator *pkg.Validator,
	logger *pkg.Logger,
	bucket string,
	maxSize int64,
) *FileService {
	return &FileService{
		fileRepo:  fileRepo,
		userRepo:  userRepo,
		storage:   storage,
		queue:     queue,
		validator: validator,
		logger:    logger,
		bucket:    bucket,
		maxSize:   maxSize,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *FileService) WithClock(now func() time.Time) *FileService {
	s.now = now
	return s
}

// InitUploadRequest starts an upload.
type InitUploadRequest struct {
	Filename  string  `json:"filename" validate:"required,min=1,max=500"`
	SizeBytes int64   `json:"sizeBytes" validate:"gte=0"`
	MimeType  string  `json:"mimeType" validate:"required,max=255"`
	FolderID  *string `json:"folderId" validate:"omitempty,objectid"`
}

// InitUploadResult carries the registered file and the URL the client PUTs
// the bytes to.
type InitUploadResult struct {
	File      *models.File `json:"file"`
	UploadURL string       `json:"uploadUrl"`
}

// InitUpload reserves quota, registers the file in uploading state and
// issues a presigned upload URL. A rejected reservation leaves the ledger
// untouched.
func (s *FileService) InitUpload(ctx context.Context, ownerID primitive.ObjectID, req *InitUploadRequest) (*InitUploadResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if s.maxSize > 0 && req.SizeBytes > s.maxSize {
		return nil, pkg.ErrFileTooLarge.WithDetails(map[string]interface{}{
			"max_size": pkg.FormatFileSize(s.maxSize),
		})
	}

	var folderID *primitive.ObjectID
	if req.FolderID != nil {
		id, err := pkg.ObjectIDFromParam(*req.FolderID)
		if err != nil {
			return nil, err
		}
		folderID = &id
	}

	if err := s.userRepo.ReserveStorage(ctx, ownerID, req.SizeBytes); err != nil {
		return nil, err
	}

	filename := pkg.SanitizeFilename(req.Filename)
	storageKey := fmt.Sprintf("files/%s/%s/%s", ownerID.Hex(), uuid.NewString(), filename)

	file := &models.File{
		OwnerUserID:      ownerID,
		FolderID:         folderID,
		Filename:         filename,
		OriginalFilename: req.Filename,
		SizeBytes:        req.SizeBytes,
		MimeType:         req.MimeType,
		StorageKey:       storageKey,
		StorageBucket:    s.bucket,
		ChecksumSHA256:   models.ChecksumPending,
		Version:          1,
		Status:           models.FileStatusUploading,
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		// Registration failed after the reservation; hand the bytes back.
		if releaseErr := s.userRepo.ReleaseStorage(ctx, ownerID, req.SizeBytes); releaseErr != nil {
			s.logger.Error("failed to release storage after create failure", map[string]interface{}{
				"owner_id": ownerID.Hex(),
				"error":    releaseErr.Error(),
			})
		}
		return nil, err
	}

	uploadURL, err := s.storage.PresignUpload(ctx, storageKey, req.MimeType, presignUploadExpiry)
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	return &InitUploadResult{File: file, UploadURL: uploadURL}, nil
}

// CompleteUpload flips the file to uploaded after the client finished the
// PUT, then dispatches checksum, OCR and thumbnail jobs. Completing twice
// is a conflict, not a double count.
func (s *FileService) CompleteUpload(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, error) {
	file, err := s.fileRepo.GetOwned(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	exists, err := s.storage.Exists(ctx, file.StorageKey)
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}
	if !exists {
		return nil, pkg.ErrFileNotReady
	}

	won, err := s.fileRepo.TransitionStatus(ctx, fileID, models.FileStatusUploading, models.FileStatusUploaded)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, pkg.ErrInvalidTransition
	}

	file, err = s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	for _, jobType := range []models.JobType{
		models.JobTypeFileChecksum,
		models.JobTypeFileOCR,
		models.JobTypeThumbnailGenerate,
	} {
		if err := s.queue.Enqueue(ctx, jobType, file); err != nil {
			// Background work is best effort; the upload itself stands.
			s.logger.Warn("failed to enqueue job", map[string]interface{}{
				"file_id": fileID.Hex(),
				"type":    jobType,
				"error":   err.Error(),
			})
		}
	}

	s.logger.Info("file upload completed", map[string]interface{}{
		"file_id":  fileID.Hex(),
		"owner_id": ownerID.Hex(),
		"size":     file.SizeBytes,
	})

	return file, nil
}

// Get returns a file the caller owns.
func (s *FileService) Get(ctx context.Context, ownerID, fileID primitive.ObjectID) (*models.File, error) {
	return s.fileRepo.GetOwned(ctx, ownerID, fileID)
}

// List returns the caller's uploaded files, optionally scoped to a folder.
func (s *FileService) List(ctx context.Context, ownerID primitive.ObjectID, folderID *primitive.ObjectID, params *pkg.PaginationParams) ([]*models.File, int64, error) {
	return s.fileRepo.ListByOwner(ctx, ownerID, folderID, params)
}

// DownloadURL issues a presigned download URL for a file the caller owns.
func (s *FileService) DownloadURL(ctx context.Context, ownerID, fileID primitive.ObjectID) (string, error) {
	file, err := s.fileRepo.GetOwned(ctx, ownerID, fileID)
	if err != nil {
		return "", err
	}
	if file.Status != models.FileStatusUploaded {
		return "", pkg.ErrFileNotReady
	}

	url, err := s.storage.PresignDownload(ctx, file.StorageKey, file.OriginalFilename, presignDownloadExpiry)
	if err != nil {
		return "", pkg.ErrInternalServer.WithCause(err)
	}

	updates := map[string]interface{}{"accessed_at": s.now()}
	if err := s.fileRepo.Update(ctx, fileID, updates); err != nil {
		s.logger.Warn("failed to stamp file access time", map[string]interface{}{
			"file_id": fileID.Hex(),
			"error":   err.Error(),
		})
	}

	return url, nil
}

// Update changes user-editable metadata: filename, folder, tags, description.
type UpdateFileRequest struct {
	Filename    *string  `json:"filename" validate:"omitempty,min=1,max=500"`
	FolderID    *string  `json:"folderId" validate:"omitempty,objectid"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=64"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
}

func (s *FileService) Update(ctx context.Context, ownerID, fileID primitive.ObjectID, req *UpdateFileRequest) (*models.File, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.fileRepo.GetOwned(ctx, ownerID, fileID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Filename != nil {
		updates["filename"] = pkg.SanitizeFilename(*req.Filename)
	}
	if req.FolderID != nil {
		id, err := pkg.ObjectIDFromParam(*req.FolderID)
		if err != nil {
			return nil, err
		}
		updates["folder_id"] = id
	}
	if req.Tags != nil {
		updates["tags"] = req.Tags
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) > 0 {
		if err := s.fileRepo.Update(ctx, fileID, updates); err != nil {
			return nil, err
		}
	}

	return s.fileRepo.GetByID(ctx, fileID)
}

// Delete soft-deletes a file and returns its bytes to the owner's ledger.
// The guarded delete ensures the release happens exactly once no matter how
// many concurrent deletes race. Shares referencing the file stay on record.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID primitive.ObjectID) error {
	file, err := s.fileRepo.GetOwned(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	won, err := s.fileRepo.SoftDelete(ctx, fileID, s.now())
	if err != nil {
		return err
	}
	if !won {
		// Another request already deleted it and released the quota.
		return pkg.ErrFileNotFound
	}

	if err := s.userRepo.ReleaseStorage(ctx, ownerID, file.SizeBytes); err != nil {
		s.logger.Error("failed to release storage on delete", map[string]interface{}{
			"file_id":  fileID.Hex(),
			"owner_id": ownerID.Hex(),
			"error":    err.Error(),
		})
		return err
	}

	// Blob removal is best effort; metadata stays as the audit trail.
	if err := s.storage.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Warn("failed to delete blob", map[string]interface{}{
			"storage_key": file.StorageKey,
			"error":       err.Error(),
		})
	}

	s.logger.Info("file deleted", map[string]interface{}{
		"file_id":  fileID.Hex(),
		"owner_id": ownerID.Hex(),
		"size":     file.SizeBytes,
	})

	return nil
}
