package worker

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"
	"github.com/fileflow/fileflow/internal/services"
)

// ocrMaxBytes caps how much of a document is read for text extraction.
const ocrMaxBytes = 1 << 20

// OCRHandler extracts searchable text from uploaded documents. Plain-text
// formats are read directly; binary formats are marked done without text so
// the flag never blocks on an unsupported input.
type OCRHandler struct {
	fileRepo repository.FileRepository
	storage  services.StorageProvider
	logger   *pkg.Logger
}

// NewOCRHandler creates an OCR handler.
func NewOCRHandler(fileRepo repository.FileRepository, storage services.StorageProvider, logger *pkg.Logger) *OCRHandler {
	return &OCRHandler{fileRepo: fileRepo, storage: storage, logger: logger}
}

func (h *OCRHandler) Type() models.JobType {
	return models.JobTypeFileOCR
}

func (h *OCRHandler) Handle(ctx context.Context, job *models.Job) error {
	text := ""
	if extractable(job.MimeType) {
		body, err := h.storage.Download(ctx, job.StorageKey)
		if err != nil {
			return err
		}
		raw, err := io.ReadAll(io.LimitReader(body, ocrMaxBytes))
		body.Close()
		if err != nil {
			return err
		}
		if utf8.Valid(raw) {
			text = string(raw)
		}
	}

	return h.fileRepo.Update(ctx, job.FileID, map[string]interface{}{
		"ocr_completed": true,
		"ocr_text":      text,
	})
}

func extractable(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/csv":
		return true
	}
	return false
}
