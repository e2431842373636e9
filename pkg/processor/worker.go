// Package processor consumes queued blur jobs and runs each one through the
// pipeline.
package processor

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"go-gblur/pkg/blur"
	"go-gblur/pkg/common"
	"go-gblur/pkg/pipeline"
	"go-gblur/pkg/queue"
)

// JobQueue is the subset of *queue.Client used by a Worker.
type JobQueue interface {
	ReadJob(ctx context.Context, consumer string, block time.Duration) (string, *common.JobMessage, error)
	AckJob(ctx context.Context, id string) error
	AddResult(ctx context.Context, res *common.ResultMessage) (string, error)
	SetStatus(ctx context.Context, jobID, status string) error
	ClaimStaleJobs(ctx context.Context, consumer string, minIdle time.Duration, count int) ([]queue.Delivery, error)
}

var _ JobQueue = (*queue.Client)(nil)

// Config tunes a Worker.
type Config struct {
	WorkerID string
	Radius   int
	// Block is how long one read waits for a job.
	Block time.Duration
	// Visibility is how long a delivered job may stay unacknowledged
	// before another worker reclaims it.
	Visibility time.Duration
	// Rand drives kernel generation; nil means wall-clock seeded.
	Rand blur.Source
}

// Worker processes jobs one at a time. Each job is a full pipeline run that
// owns its own grid and kernel.
type Worker struct {
	queue JobQueue
	cfg   Config

	processed atomic.Int64
	failed    atomic.Int64
}

func NewWorker(q JobQueue, cfg Config) *Worker {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Visibility <= 0 {
		cfg.Visibility = 30 * time.Second
	}
	if cfg.Radius == 0 {
		cfg.Radius = pipeline.DefaultRadius
	}
	return &Worker{queue: q, cfg: cfg}
}

// Processed returns the number of jobs that completed successfully.
func (w *Worker) Processed() int64 { return w.processed.Load() }

// Failed returns the number of jobs that ran and failed.
func (w *Worker) Failed() int64 { return w.failed.Load() }

// Run reads and processes jobs until ctx is cancelled. Stale jobs of other
// consumers are reclaimed every Visibility interval.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("Worker %s ready, waiting for jobs", w.cfg.WorkerID)

	ticker := time.NewTicker(w.cfg.Visibility)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %s shutting down after %d jobs (%d failed)",
				w.cfg.WorkerID, w.Processed(), w.Failed())
			return nil
		case <-ticker.C:
			w.reclaim(ctx)
		default:
		}

		id, job, err := w.queue.ReadJob(ctx, w.cfg.WorkerID, w.cfg.Block)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("Worker %s read error: %v", w.cfg.WorkerID, err)
			}
			continue
		}
		if job == nil {
			continue
		}
		w.handle(ctx, id, job)
	}
}

func (w *Worker) reclaim(ctx context.Context) {
	claimed, err := w.queue.ClaimStaleJobs(ctx, w.cfg.WorkerID, w.cfg.Visibility, 50)
	if err != nil {
		log.Printf("Failed to claim stale jobs: %v", err)
		return
	}
	if len(claimed) > 0 {
		log.Printf("Claimed %d stale jobs for retry", len(claimed))
	}
	for _, d := range claimed {
		w.handle(ctx, d.ID, d.Job)
	}
}

// handle runs one job, publishes its result and acknowledges it. A job whose
// result cannot be published is left pending so it gets reclaimed.
func (w *Worker) handle(ctx context.Context, msgID string, job *common.JobMessage) {
	if job.InputPath == "" || job.OutputPath == "" {
		log.Printf("Worker %s: dropping job %s without paths", w.cfg.WorkerID, job.JobID)
		if err := w.queue.AckJob(ctx, msgID); err != nil {
			log.Printf("Worker %s ack %s: %v", w.cfg.WorkerID, msgID, err)
		}
		return
	}

	w.setStatus(ctx, job.JobID, common.StatusRunning)
	res := w.Process(ctx, job)
	if res.ExitCode == pipeline.ExitCanceled {
		// Interrupted jobs stay pending and are reclaimed by another worker.
		log.Printf("Worker %s: job %s interrupted, leaving it pending", w.cfg.WorkerID, job.JobID)
		return
	}

	if _, err := w.queue.AddResult(ctx, res); err != nil {
		log.Printf("Worker %s failed to publish result of %s: %v", w.cfg.WorkerID, job.JobID, err)
		return
	}
	status := common.StatusCompleted
	if !res.OK() {
		status = common.StatusFailed
	}
	w.setStatus(ctx, job.JobID, status)
	if err := w.queue.AckJob(ctx, msgID); err != nil {
		log.Printf("Worker %s ack %s: %v", w.cfg.WorkerID, msgID, err)
	}
}

func (w *Worker) setStatus(ctx context.Context, jobID, status string) {
	if err := w.queue.SetStatus(ctx, jobID, status); err != nil {
		log.Printf("Worker %s: status of %s: %v", w.cfg.WorkerID, jobID, err)
	}
}

// Process runs the pipeline for job and returns its result message.
func (w *Worker) Process(ctx context.Context, job *common.JobMessage) *common.ResultMessage {
	opts := blur.Options{}
	if job.Legacy {
		opts = blur.LegacyOptions()
	}

	start := time.Now()
	r, err := pipeline.Run(ctx, pipeline.Config{
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		Radius:     w.cfg.Radius,
		Options:    opts,
		Verify:     job.Verify,
		Rand:       w.cfg.Rand,
	})

	res := &common.ResultMessage{
		JobID:       job.JobID,
		WorkerID:    w.cfg.WorkerID,
		InputPath:   job.InputPath,
		OutputPath:  job.OutputPath,
		Width:       r.Width,
		Height:      r.Height,
		ExitCode:    pipeline.ExitCode(err),
		ProcessTime: time.Since(start).Seconds(),
	}
	switch {
	case errors.Is(err, pipeline.ErrCanceled):
		res.Error = err.Error()
		log.Printf("Worker %s: job %s cancelled", w.cfg.WorkerID, job.JobID)
	case err != nil:
		res.Error = err.Error()
		w.failed.Add(1)
		log.Printf("Worker %s: job %s failed: %v", w.cfg.WorkerID, job.JobID, err)
	default:
		w.processed.Add(1)
		log.Printf("Worker %s: blurred %s (%dx%d) in %.3fs",
			w.cfg.WorkerID, job.InputPath, r.Width, r.Height, res.ProcessTime)
	}
	return res
}
