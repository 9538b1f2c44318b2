// Package dispatcher accepts scrape jobs and fans queue work out to workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/metrics"
	"github.com/JakeFAU/kolscout/internal/scout"
	"github.com/JakeFAU/kolscout/internal/worker"
)

// Config bounds submitted jobs.
type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue    scout.Queue
	jobStore scout.JobStore
	ids      scout.IDGenerator
	clock    scout.Clock
	workers  []*worker.Worker
	cfg      Config
	logger   *zap.Logger
}

// New creates a Dispatcher.
func New(
	queue scout.Queue,
	jobStore scout.JobStore,
	ids scout.IDGenerator,
	clock scout.Clock,
	workers []*worker.Worker,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:    queue,
		jobStore: jobStore,
		ids:      ids,
		clock:    clock,
		workers:  workers,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Submit validates params, records a queued job and enqueues it. A job that
// cannot be enqueued is marked failed.
func (d *Dispatcher) Submit(ctx context.Context, params scout.JobParameters) (scout.Job, error) {
	params = d.applyLimits(params.Normalize())
	if err := params.Validate(); err != nil {
		return scout.Job{}, err
	}
	id, err := d.ids.NewID()
	if err != nil {
		return scout.Job{}, fmt.Errorf("generate job id: %w", err)
	}
	now := d.clock.Now()
	job := scout.Job{
		ID:         id,
		Status:     scout.JobStatusQueued,
		Submitted:  now,
		Parameters: params,
	}
	if err := d.jobStore.CreateJob(ctx, job); err != nil {
		return scout.Job{}, fmt.Errorf("create job: %w", err)
	}
	if err := d.Enqueue(ctx, scout.QueueItem{JobID: id, Params: params, Submitted: now.Unix()}); err != nil {
		if uerr := d.jobStore.UpdateJobStatus(ctx, id, scout.JobStatusFailed, err.Error(), scout.JobCounters{}); uerr != nil {
			d.logger.Error("mark unqueued job failed", zap.String("job_id", id), zap.Error(uerr))
		}
		return scout.Job{}, err
	}
	metrics.ObserveJob(string(params.Kind), string(scout.JobStatusQueued))
	d.logger.Info("job submitted",
		zap.String("job_id", id),
		zap.String("kind", string(params.Kind)),
		zap.Int("queries", len(params.Queries)),
		zap.Int("usernames", len(params.Usernames)),
	)
	return job, nil
}

// Cancel marks a non-terminal job canceled. Workers skip or stop it.
func (d *Dispatcher) Cancel(ctx context.Context, jobID string) (scout.Job, error) {
	job, err := d.jobStore.GetJob(ctx, jobID)
	if err != nil {
		return scout.Job{}, err
	}
	if job.Status.Terminal() {
		return job, nil
	}
	err = d.jobStore.UpdateJobStatus(ctx, jobID, scout.JobStatusCanceled, "canceled by request", job.Counters)
	if errors.Is(err, scout.ErrJobFinished) {
		return d.jobStore.GetJob(ctx, jobID)
	}
	if err != nil {
		return scout.Job{}, fmt.Errorf("cancel job: %w", err)
	}
	d.logger.Info("job canceled", zap.String("job_id", jobID))
	return d.jobStore.GetJob(ctx, jobID)
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, item scout.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// applyLimits defaults and caps the per-batch limit. Analyze jobs take no
// limit; every listed username is analyzed.
func (d *Dispatcher) applyLimits(p scout.JobParameters) scout.JobParameters {
	if p.Kind == scout.JobKindTikTokAnalyze {
		p.Limit = 0
		return p
	}
	if p.Limit == 0 {
		p.Limit = d.cfg.DefaultLimit
	}
	if d.cfg.MaxLimit > 0 && p.Limit > d.cfg.MaxLimit {
		p.Limit = d.cfg.MaxLimit
	}
	return p
}
