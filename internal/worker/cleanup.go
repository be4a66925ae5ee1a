package worker

import (
	"context"
	"sync"
	"time"

	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"
	"github.com/fileflow/fileflow/internal/services"
)

// CleanupConfig controls the background sweep over abandoned uploads.
type CleanupConfig struct {
	Interval        time.Duration
	UploadRetention time.Duration
	BatchSize       int64
}

// DefaultCleanupConfig returns the default sweep settings.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Interval:        time.Hour,
		UploadRetention: 24 * time.Hour,
		BatchSize:       100,
	}
}

// CleanupWorker reclaims quota held by uploads that were initialized but
// never completed. InitUpload reserves storage before any bytes arrive, so
// a client that walks away leaves a reservation nothing else releases.
type CleanupWorker struct {
	fileRepo repository.FileRepository
	userRepo repository.UserRepository
	storage  services.StorageProvider
	logger   *pkg.Logger
	config   CleanupConfig
	now      func() time.Time

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewCleanupWorker creates a cleanup worker. Zero config fields fall back to
// the defaults.
func NewCleanupWorker(
	fileRepo repository.FileRepository,
	userRepo repository.UserRepository,
	storage services.StorageProvider,
	logger *pkg.Logger,
	config CleanupConfig,
) *CleanupWorker {
	defaults := DefaultCleanupConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.UploadRetention <= 0 {
		config.UploadRetention = defaults.UploadRetention
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &CleanupWorker{
		fileRepo: fileRepo,
		userRepo: userRepo,
		storage:  storage,
		logger:   logger,
		config:   config,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// WithClock substitutes the time source.
func (w *CleanupWorker) WithClock(now func() time.Time) *CleanupWorker {
	w.now = now
	return w
}

// Start launches the periodic sweep.
func (w *CleanupWorker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the sweep and waits for an in-flight pass to finish.
func (w *CleanupWorker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}

func (w *CleanupWorker) loop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := w.SweepIncompleteUploads(context.Background()); err != nil {
				w.logger.Error("upload sweep failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		case <-w.done:
			return
		}
	}
}

// SweepIncompleteUploads soft-deletes files stuck in the uploading state
// past the retention window and releases their quota reservation. The
// guarded soft delete makes the release exactly-once even if a sweep races
// a late CompleteUpload or a second sweep.
func (w *CleanupWorker) SweepIncompleteUploads(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.config.UploadRetention)
	files, err := w.fileRepo.ListStaleUploading(ctx, cutoff, w.config.BatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, file := range files {
		won, err := w.fileRepo.SoftDelete(ctx, file.ID, w.now())
		if err != nil {
			w.logger.Error("failed to delete stale upload", map[string]interface{}{
				"file_id": file.ID.Hex(),
				"error":   err.Error(),
			})
			continue
		}
		if !won {
			continue
		}
		if err := w.userRepo.ReleaseStorage(ctx, file.OwnerUserID, file.SizeBytes); err != nil {
			w.logger.Error("failed to release reserved quota", map[string]interface{}{
				"file_id": file.ID.Hex(),
				"owner":   file.OwnerUserID.Hex(),
				"error":   err.Error(),
			})
		}
		// The blob usually doesn't exist; the client never finished the PUT.
		if err := w.storage.Delete(ctx, file.StorageKey); err != nil {
			w.logger.Debug("no blob removed for stale upload", map[string]interface{}{
				"storage_key": file.StorageKey,
			})
		}
		swept++
	}

	if swept > 0 {
		w.logger.Info("reclaimed incomplete uploads", map[string]interface{}{
			"count": swept,
		})
	}
	return swept, nil
}
