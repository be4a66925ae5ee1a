package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"
)

const (
	defaultWorkers     = 4
	defaultBacklog     = 256
	defaultMaxAttempts = 3
	jobTimeout         = 2 * time.Minute
)

// Handler executes one kind of background job.
type Handler interface {
	Type() models.JobType
	Handle(ctx context.Context, job *models.Job) error
}

// Queue runs background jobs on a bounded worker pool. Every job is
// persisted before it runs, so failures land in the job record instead of
// the request that triggered them.
type Queue struct {
	jobRepo  repository.JobRepository
	handlers map[models.JobType]Handler
	jobs     chan *models.Job
	logger   *pkg.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once

	// mu serializes sends against close, so a job finishing work mid
	// shutdown can never hit a closed channel.
	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue with the given handlers registered.
func NewQueue(jobRepo repository.JobRepository, logger *pkg.Logger, handlers ...Handler) *Queue {
	registered := make(map[models.JobType]Handler, len(handlers))
	for _, h := range handlers {
		registered[h.Type()] = h
	}
	return &Queue{
		jobRepo:  jobRepo,
		handlers: registered,
		jobs:     make(chan *models.Job, defaultBacklog),
		logger:   logger,
	}
}

// Start launches the worker pool.
func (q *Queue) Start(workers int) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
}

// Stop drains in-flight jobs and shuts the pool down. Enqueue calls arriving
// after Stop still persist their job record but no longer dispatch it.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.jobs)
		q.mu.Unlock()
	})
	q.wg.Wait()
}

// Enqueue persists a job record and hands it to the pool. It returns as
// soon as the record exists; execution and its outcome are the pool's
// business alone.
func (q *Queue) Enqueue(ctx context.Context, jobType models.JobType, file *models.File) error {
	if _, ok := q.handlers[jobType]; !ok {
		return fmt.Errorf("no handler registered for job type %q", jobType)
	}

	job := &models.Job{
		Type:        jobType,
		Status:      models.JobStatusPending,
		FileID:      file.ID,
		StorageKey:  file.StorageKey,
		MimeType:    file.MimeType,
		MaxAttempts: defaultMaxAttempts,
	}
	if err := q.jobRepo.Create(ctx, job); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		// Shutting down; the pending record survives for a later sweep.
		return nil
	}
	select {
	case q.jobs <- job:
	default:
		q.logger.Warn("job backlog full, leaving job pending", map[string]interface{}{
			"job_id": job.ID.Hex(),
			"type":   jobType,
		})
	}
	return nil
}

func (q *Queue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(job)
	}
}

// run executes one job with bounded retries. Errors are recorded on the job
// record and logged; nothing propagates.
func (q *Queue) run(job *models.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	handler := q.handlers[job.Type]

	if err := q.jobRepo.MarkProcessing(ctx, job.ID, time.Now()); err != nil {
		q.logger.Error("failed to mark job processing", map[string]interface{}{
			"job_id": job.ID.Hex(),
			"error":  err.Error(),
		})
		return
	}

	var lastErr error
	for attempt := 1; attempt <= job.MaxAttempts; attempt++ {
		lastErr = handler.Handle(ctx, job)
		if lastErr == nil {
			if err := q.jobRepo.MarkCompleted(context.Background(), job.ID, time.Now()); err != nil {
				q.logger.Error("failed to mark job completed", map[string]interface{}{
					"job_id": job.ID.Hex(),
					"error":  err.Error(),
				})
			}
			return
		}
		q.logger.Warn("job attempt failed", map[string]interface{}{
			"job_id":  job.ID.Hex(),
			"type":    job.Type,
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
		if ctx.Err() != nil {
			break
		}
	}

	// Bookkeeping survives a handler timeout.
	if err := q.jobRepo.MarkFailed(context.Background(), job.ID, time.Now(), job.MaxAttempts, lastErr.Error()); err != nil {
		q.logger.Error("failed to mark job failed", map[string]interface{}{
			"job_id": job.ID.Hex(),
			"error":  err.Error(),
		})
	}
}
