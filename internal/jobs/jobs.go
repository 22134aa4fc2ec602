// Package jobs tracks long running background work. Every job is addressed
// by a client-supplied UUID so a retried request resumes the same row
// instead of spawning a duplicate.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-library/internal/database"
)

// Job type identifiers.
const (
	TypeScanPhotos              = "SCAN_PHOTOS"
	TypeGenerateAutoAlbums      = "GENERATE_AUTO_ALBUMS"
	TypeGenerateAutoAlbumTitles = "GENERATE_AUTO_ALBUM_TITLES"
	TypeTrainFaces              = "TRAIN_FACES"
	TypeDeleteMissingPhotos     = "DELETE_MISSING_PHOTOS"
	TypeCalculateClipEmbeddings = "CALCULATE_CLIP_EMBEDDINGS"
	TypeScanFaces               = "SCAN_FACES"
	TypeClusterAllFaces         = "CLUSTER_ALL_FACES"
	TypeDownloadPhotos          = "DOWNLOAD_PHOTOS"
	TypeDownloadModels          = "DOWNLOAD_MODELS"
)

// progressWriteInterval throttles progress persistence when a job emits
// updates in a tight loop.
const progressWriteInterval = 5 * time.Second

// Controller owns job lifecycle persistence and the set of currently
// executing runs.
type Controller struct {
	store  database.JobStore
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	active map[uuid.UUID]*Run
}

// NewController creates a job controller backed by the given store.
func NewController(store database.JobStore, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  store,
		logger: logger,
		now:    time.Now,
		active: make(map[uuid.UUID]*Run),
	}
}

// Run is the handle a job body uses to report progress and completion.
type Run struct {
	ctrl   *Controller
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	job       database.LongRunningJob
	lastWrite time.Time
}

// Start upserts the job row and returns a running handle. An existing row
// with the same UUID gets its started_at refreshed; anything else about a
// previous run is preserved.
func (c *Controller) Start(ctx context.Context, jobID uuid.UUID, jobType string, startedBy int64) (*Run, error) {
	now := c.now()

	job, err := c.store.GetJob(ctx, jobID)
	switch {
	case err == nil:
		job.StartedAt = &now
		job.JobType = jobType
		if err := c.store.UpdateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("update job %s: %w", jobID, err)
		}
	case err == database.ErrNotFound:
		job = &database.LongRunningJob{
			JobID:       jobID,
			JobType:     jobType,
			StartedByID: startedBy,
			QueuedAt:    now,
			StartedAt:   &now,
		}
		if err := c.store.UpsertJob(ctx, job); err != nil {
			return nil, fmt.Errorf("create job %s: %w", jobID, err)
		}
	default:
		return nil, fmt.Errorf("lookup job %s: %w", jobID, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		ctrl:   c,
		ctx:    runCtx,
		cancel: cancel,
		job:    *job,
	}

	c.mu.Lock()
	c.active[jobID] = run
	c.mu.Unlock()

	c.logger.Info("job started", "job_id", jobID, "job_type", jobType)
	return run, nil
}

// Context carries the cooperative cancellation signal for the job body.
func (r *Run) Context() context.Context {
	return r.ctx
}

// Cancelled reports whether the job has been asked to stop.
func (r *Run) Cancelled() bool {
	return r.ctx.Err() != nil
}

// SetTarget records the total amount of work and persists immediately.
func (r *Run) SetTarget(ctx context.Context, target int) error {
	r.mu.Lock()
	r.job.Result.Progress.Target = target
	job := r.job
	r.lastWrite = r.ctrl.now()
	r.mu.Unlock()
	return r.ctrl.store.UpdateJob(ctx, &job)
}

// Progress records the current counter. Writes reach the store at most
// every five seconds; the final value lands with Finish.
func (r *Run) Progress(ctx context.Context, current int) error {
	r.mu.Lock()
	r.job.Result.Progress.Current = current
	now := r.ctrl.now()
	if now.Sub(r.lastWrite) < progressWriteInterval {
		r.mu.Unlock()
		return nil
	}
	r.lastWrite = now
	job := r.job
	r.mu.Unlock()
	return r.ctrl.store.UpdateJob(ctx, &job)
}

// SetDetail attaches a job-specific result field.
func (r *Run) SetDetail(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job.Result.Details == nil {
		r.job.Result.Details = make(map[string]any)
	}
	r.job.Result.Details[key] = value
}

// Finish marks the job done and persists the final progress.
func (r *Run) Finish(ctx context.Context) error {
	return r.complete(ctx, false)
}

// Fail marks the job failed, keeping whatever progress was made.
func (r *Run) Fail(ctx context.Context, cause error) error {
	if cause != nil {
		r.SetDetail("error", cause.Error())
	}
	r.ctrl.logger.Error("job failed", "job_id", r.job.JobID, "job_type", r.job.JobType, "error", cause)
	return r.complete(ctx, true)
}

func (r *Run) complete(ctx context.Context, failed bool) error {
	now := r.ctrl.now()

	r.mu.Lock()
	r.job.Finished = true
	r.job.Failed = failed
	r.job.FinishedAt = &now
	job := r.job
	r.mu.Unlock()

	r.cancel()

	r.ctrl.mu.Lock()
	delete(r.ctrl.active, job.JobID)
	r.ctrl.mu.Unlock()

	if err := r.ctrl.store.UpdateJob(ctx, &job); err != nil {
		return fmt.Errorf("persist job %s completion: %w", job.JobID, err)
	}
	return nil
}

// Detail returns a snapshot of the job row.
func (r *Run) Detail() database.LongRunningJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job
}

// GetJob returns the persisted state of one job.
func (c *Controller) GetJob(ctx context.Context, jobID uuid.UUID) (*database.LongRunningJob, error) {
	return c.store.GetJob(ctx, jobID)
}

// ListJobs returns the most recently queued jobs, newest first.
func (c *Controller) ListJobs(ctx context.Context, limit int) ([]database.LongRunningJob, error) {
	return c.store.ListJobs(ctx, limit)
}

// CancelJob asks a running job to stop. Returns false when the job is not
// currently executing in this process.
func (c *Controller) CancelJob(jobID uuid.UUID) bool {
	c.mu.Lock()
	run, ok := c.active[jobID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	run.cancel()
	c.logger.Info("job cancellation requested", "job_id", jobID)
	return true
}

// QueueCanAcceptJob reports whether a new queue-blocking job may start.
func (c *Controller) QueueCanAcceptJob(ctx context.Context) (bool, error) {
	running, err := c.store.CountRunningJobs(ctx)
	if err != nil {
		return false, fmt.Errorf("count running jobs: %w", err)
	}
	return running == 0, nil
}

// JobDetail returns the most recent unfinished job, or nil when the queue
// is idle.
func (c *Controller) JobDetail(ctx context.Context) (*database.LongRunningJob, error) {
	list, err := c.store.ListJobs(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	for i := range list {
		if !list[i].Finished {
			return &list[i], nil
		}
	}
	return nil, nil
}
