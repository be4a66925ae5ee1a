package worker

import (
	"context"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"
	"github.com/fileflow/fileflow/internal/services"
)

// ChecksumHandler computes the SHA-256 of an uploaded blob and finalizes it
// on the file record, replacing the pending placeholder exactly once.
type ChecksumHandler struct {
	fileRepo repository.FileRepository
	storage  services.StorageProvider
	logger   *pkg.Logger
}

// NewChecksumHandler creates a checksum handler.
func NewChecksumHandler(fileRepo repository.FileRepository, storage services.StorageProvider, logger *pkg.Logger) *ChecksumHandler {
	return &ChecksumHandler{fileRepo: fileRepo, storage: storage, logger: logger}
}

func (h *ChecksumHandler) Type() models.JobType {
	return models.JobTypeFileChecksum
}

func (h *ChecksumHandler) Handle(ctx context.Context, job *models.Job) error {
	body, err := h.storage.Download(ctx, job.StorageKey)
	if err != nil {
		return err
	}
	defer body.Close()

	checksum, err := pkg.HashReader(body)
	if err != nil {
		return err
	}

	if err := h.fileRepo.FinalizeChecksum(ctx, job.FileID, checksum); err != nil {
		return err
	}

	h.logger.Debug("checksum finalized", map[string]interface{}{
		"file_id":  job.FileID.Hex(),
		"checksum": checksum,
	})
	return nil
}
