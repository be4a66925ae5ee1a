package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"
	"github.com/fileflow/fileflow/internal/services"
)

const (
	thumbnailMaxEdge = 256
	thumbnailQuality = 80
)

// ThumbnailHandler renders a small JPEG preview for image uploads and stores
// it next to the original under a thumbs/ key.
type ThumbnailHandler struct {
	fileRepo repository.FileRepository
	storage  services.StorageProvider
	logger   *pkg.Logger
}

// NewThumbnailHandler creates a thumbnail handler.
func NewThumbnailHandler(fileRepo repository.FileRepository, storage services.StorageProvider, logger *pkg.Logger) *ThumbnailHandler {
	return &ThumbnailHandler{fileRepo: fileRepo, storage: storage, logger: logger}
}

func (h *ThumbnailHandler) Type() models.JobType {
	return models.JobTypeThumbnailGenerate
}

func (h *ThumbnailHandler) Handle(ctx context.Context, job *models.Job) error {
	if !strings.HasPrefix(job.MimeType, "image/") {
		// Not an image; nothing to render.
		return nil
	}

	body, err := h.storage.Download(ctx, job.StorageKey)
	if err != nil {
		return err
	}
	defer body.Close()

	img, _, err := image.Decode(body)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := downscale(img, thumbnailMaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	thumbKey := "thumbs/" + job.StorageKey
	if err := h.storage.Upload(ctx, thumbKey, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		return err
	}

	return h.fileRepo.Update(ctx, job.FileID, map[string]interface{}{
		"thumbnail_key": thumbKey,
	})
}

// downscale resizes with nearest-neighbour sampling so the longest edge fits
// maxEdge. Previews favor speed over fidelity.
func downscale(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}

	scale := float64(maxEdge) / float64(w)
	if h > w {
		scale = float64(maxEdge) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		sy := bounds.Min.Y + y*h/dh
		for x := 0; x < dw; x++ {
			sx := bounds.Min.X + x*w/dw
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
