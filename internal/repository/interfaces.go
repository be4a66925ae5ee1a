package repository

import (
	"context"
	"time"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository defines user persistence, including the quota ledger.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error

	// ReserveStorage atomically adds size to storage_used_bytes, but only
	// when the result stays within storage_quota_bytes. A rejected
	// reservation leaves the ledger untouched and returns ErrQuotaExceeded.
	ReserveStorage(ctx context.Context, id primitive.ObjectID, size int64) error
	// ReleaseStorage subtracts size from storage_used_bytes, floored at zero.
	ReleaseStorage(ctx context.Context, id primitive.ObjectID, size int64) error
}

// FileRepository defines file metadata persistence.
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.File, error)
	GetOwned(ctx context.Context, ownerID, id primitive.ObjectID) (*models.File, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID, folderID *primitive.ObjectID, params *pkg.PaginationParams) ([]*models.File, int64, error)
	// ListStaleUploading returns files stuck in the uploading state since
	// before the cutoff, oldest first.
	ListStaleUploading(ctx context.Context, before time.Time, limit int64) ([]*models.File, error)

	// TransitionStatus flips the file status only when the current status
	// matches from; it reports whether this call won the transition.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.FileStatus) (bool, error)
	// SoftDelete marks the file deleted; it reports whether this call
	// performed the delete, so quota release happens exactly once.
	SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	// FinalizeChecksum writes the computed checksum over the pending
	// placeholder. A finalized checksum is never overwritten.
	FinalizeChecksum(ctx context.Context, id primitive.ObjectID, checksum string) error
	DetachFolder(ctx context.Context, folderID primitive.ObjectID) error
}

// FolderRepository defines folder tree persistence.
type FolderRepository interface {
	Create(ctx context.Context, folder *models.Folder) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Folder, error)
	GetOwned(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Folder, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.FolderWithCount, error)
	ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]*models.Folder, error)
	MaxPosition(ctx context.Context, ownerID primitive.ObjectID) (int, bool, error)
	// CompactPositions closes the gap left by a removed sibling.
	CompactPositions(ctx context.Context, ownerID primitive.ObjectID, abovePosition int) error
}

// ShareRepository defines share transaction persistence. State transitions
// are guarded single-document updates so concurrent callers serialize on the
// store, never on in-process locks.
type ShareRepository interface {
	Create(ctx context.Context, share *models.Share) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Share, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Share, error)
	GetByToken(ctx context.Context, token string) (*models.Share, error)
	ListBySender(ctx context.Context, senderID primitive.ObjectID, params *pkg.PaginationParams) ([]*models.Share, int64, error)
	ListByRecipient(ctx context.Context, recipientID primitive.ObjectID, email string, params *pkg.PaginationParams) ([]*models.Share, int64, error)

	// MarkDelivered performs the guarded sent->delivered transition and
	// reports whether this call performed it.
	MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	// RegisterView atomically increments view_count, stamps the timeline and
	// advances status to viewed, but only while the share is viewable:
	// non-terminal, unexpired at the given time, and under its view limit.
	// It returns the updated share, or ErrShareNotFound when no viewable
	// share matched.
	RegisterView(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Share, error)
	// Revoke moves any non-terminal share to revoked and reports whether
	// this call performed the transition.
	Revoke(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

// JobRepository persists background job records.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error)
	MarkProcessing(ctx context.Context, id primitive.ObjectID, at time.Time) error
	MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, at time.Time, attempts int, errMsg string) error
	ListByFile(ctx context.Context, fileID primitive.ObjectID) ([]*models.Job, error)
}

// Repository aggregates all repositories
type Repository struct {
	User   UserRepository
	File   FileRepository
	Folder FolderRepository
	Share  ShareRepository
	Job    JobRepository
}
