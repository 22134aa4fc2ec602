package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestController(store database.JobStore) (*Controller, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	ctrl := NewController(store, slog.Default())
	ctrl.now = clock.Now
	return ctrl, clock
}

func TestStartCreatesJob(t *testing.T) {
	store := mock.NewStore()
	ctrl, clock := newTestController(store)
	id := uuid.New()

	run, err := ctrl.Start(context.Background(), id, TypeScanPhotos, 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job, err := store.GetJob(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if job.JobType != TypeScanPhotos {
		t.Errorf("JobType = %q, want %q", job.JobType, TypeScanPhotos)
	}
	if !job.QueuedAt.Equal(clock.Now()) {
		t.Errorf("QueuedAt = %v, want %v", job.QueuedAt, clock.Now())
	}
	if job.StartedAt == nil || !job.StartedAt.Equal(clock.Now()) {
		t.Errorf("StartedAt = %v, want %v", job.StartedAt, clock.Now())
	}
	if run.Cancelled() {
		t.Error("fresh run must not be cancelled")
	}
}

func TestStartResumesExistingJob(t *testing.T) {
	store := mock.NewStore()
	ctrl, clock := newTestController(store)
	id := uuid.New()

	queued := clock.Now().Add(-time.Hour)
	if err := store.UpsertJob(context.Background(), &database.LongRunningJob{
		JobID:       id,
		JobType:     TypeTrainFaces,
		StartedByID: 7,
		QueuedAt:    queued,
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := ctrl.Start(context.Background(), id, TypeTrainFaces, 7); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job, err := store.GetJob(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !job.QueuedAt.Equal(queued) {
		t.Errorf("QueuedAt changed on resume: %v, want %v", job.QueuedAt, queued)
	}
	if job.StartedAt == nil || !job.StartedAt.Equal(clock.Now()) {
		t.Errorf("StartedAt = %v, want refreshed to %v", job.StartedAt, clock.Now())
	}
}

func TestProgressThrottled(t *testing.T) {
	store := mock.NewStore()
	ctrl, clock := newTestController(store)
	id := uuid.New()
	ctx := context.Background()

	run, err := ctrl.Start(ctx, id, TypeScanFaces, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := run.SetTarget(ctx, 100); err != nil {
		t.Fatal(err)
	}

	// Too soon after the target write, stays in memory only.
	clock.Advance(2 * time.Second)
	if err := run.Progress(ctx, 10); err != nil {
		t.Fatal(err)
	}
	job, _ := store.GetJob(ctx, id)
	if job.Result.Progress.Current != 0 {
		t.Errorf("current persisted too early: %d", job.Result.Progress.Current)
	}

	clock.Advance(4 * time.Second)
	if err := run.Progress(ctx, 20); err != nil {
		t.Fatal(err)
	}
	job, _ = store.GetJob(ctx, id)
	if job.Result.Progress.Current != 20 {
		t.Errorf("current = %d, want 20 after throttle window", job.Result.Progress.Current)
	}

	// The final value always lands with Finish.
	if err := run.Progress(ctx, 100); err != nil {
		t.Fatal(err)
	}
	if err := run.Finish(ctx); err != nil {
		t.Fatal(err)
	}
	job, _ = store.GetJob(ctx, id)
	if job.Result.Progress.Current != 100 {
		t.Errorf("final current = %d, want 100", job.Result.Progress.Current)
	}
	if !job.Finished || job.Failed {
		t.Errorf("finished job state = finished:%v failed:%v", job.Finished, job.Failed)
	}
	if job.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
}

func TestFailKeepsPartialProgress(t *testing.T) {
	store := mock.NewStore()
	ctrl, clock := newTestController(store)
	id := uuid.New()
	ctx := context.Background()

	run, err := ctrl.Start(ctx, id, TypeCalculateClipEmbeddings, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := run.SetTarget(ctx, 50); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Second)
	if err := run.Progress(ctx, 30); err != nil {
		t.Fatal(err)
	}

	if err := run.Fail(ctx, errors.New("inference service unreachable")); err != nil {
		t.Fatal(err)
	}

	job, _ := store.GetJob(ctx, id)
	if !job.Failed || !job.Finished {
		t.Errorf("failed job state = finished:%v failed:%v", job.Finished, job.Failed)
	}
	if job.Result.Progress.Current != 30 || job.Result.Progress.Target != 50 {
		t.Errorf("partial progress lost: %+v", job.Result.Progress)
	}
	if job.Result.Details["error"] != "inference service unreachable" {
		t.Errorf("error detail = %v", job.Result.Details["error"])
	}
}

func TestCancelJob(t *testing.T) {
	store := mock.NewStore()
	ctrl, _ := newTestController(store)
	id := uuid.New()
	ctx := context.Background()

	run, err := ctrl.Start(ctx, id, TypeGenerateAutoAlbums, 1)
	if err != nil {
		t.Fatal(err)
	}

	if !ctrl.CancelJob(id) {
		t.Fatal("CancelJob() = false for a running job")
	}
	if !run.Cancelled() {
		t.Error("run did not observe cancellation")
	}

	if ctrl.CancelJob(uuid.New()) {
		t.Error("CancelJob() = true for an unknown job")
	}

	if err := run.Finish(ctx); err != nil {
		t.Fatal(err)
	}
	if ctrl.CancelJob(id) {
		t.Error("CancelJob() = true after the job finished")
	}
}

func TestQueueInspection(t *testing.T) {
	store := mock.NewStore()
	ctrl, clock := newTestController(store)
	ctx := context.Background()

	ok, err := ctrl.QueueCanAcceptJob(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("empty queue should accept jobs")
	}
	detail, err := ctrl.JobDetail(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if detail != nil {
		t.Errorf("idle queue detail = %+v, want nil", detail)
	}

	id := uuid.New()
	run, err := ctrl.Start(ctx, id, TypeDownloadModels, 1)
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)

	ok, err = ctrl.QueueCanAcceptJob(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("queue with a running job must not accept another")
	}
	detail, err = ctrl.JobDetail(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if detail == nil || detail.JobID != id {
		t.Errorf("detail = %+v, want the running job", detail)
	}

	if err := run.Finish(ctx); err != nil {
		t.Fatal(err)
	}
	ok, err = ctrl.QueueCanAcceptJob(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("queue should accept jobs again after completion")
	}
}
