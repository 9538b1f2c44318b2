// Package worker implements the scrape pipeline execution loop.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/metrics"
	"github.com/JakeFAU/kolscout/internal/scout"
)

// Config controls Worker behavior.
type Config struct {
	BlobPrefix      string
	IngestTopic     string
	EngagementTopic string
}

// Worker consumes queue items and executes the scrape pipeline.
type Worker struct {
	queue     scout.Queue
	jobStore  scout.JobStore
	profiles  scout.ProfileStore
	blobStore scout.BlobStore
	publisher scout.Publisher
	source    scout.ProfileSource
	resolver  scout.BioResolver
	hasher    scout.Hasher
	ids       scout.IDGenerator
	clock     scout.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. blobStore, publisher and resolver may be nil.
func New(
	queue scout.Queue,
	jobStore scout.JobStore,
	profiles scout.ProfileStore,
	blobStore scout.BlobStore,
	publisher scout.Publisher,
	source scout.ProfileSource,
	resolver scout.BioResolver,
	hasher scout.Hasher,
	ids scout.IDGenerator,
	clock scout.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IngestTopic == "" {
		cfg.IngestTopic = "profiles.ingested"
	}
	if cfg.EngagementTopic == "" {
		cfg.EngagementTopic = "engagement.updated"
	}
	return &Worker{
		queue:     queue,
		jobStore:  jobStore,
		profiles:  profiles,
		blobStore: blobStore,
		publisher: publisher,
		source:    source,
		resolver:  resolver,
		hasher:    hasher,
		ids:       ids,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

// jobRun carries the mutable state of one job execution.
type jobRun struct {
	item      scout.QueueItem
	counters  scout.JobCounters
	processed int
	errText   string
	stopped   bool
}

func (r *jobRun) fail(err error) {
	r.counters.BatchesFailed++
	r.errText = err.Error()
}

func (w *Worker) processJob(ctx context.Context, item scout.QueueItem) {
	kind := string(item.Params.Kind)
	if w.canceled(ctx, item.JobID) {
		w.logger.Info("skipping canceled job", zap.String("job_id", item.JobID))
		return
	}
	err := w.jobStore.UpdateJobStatus(ctx, item.JobID, scout.JobStatusRunning, "", scout.JobCounters{})
	if errors.Is(err, scout.ErrJobFinished) {
		w.logger.Info("skipping finished job", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}
	if err != nil {
		w.logger.Error("update job status failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	run := &jobRun{item: item}
	switch item.Params.Kind {
	case scout.JobKindTikTokSearch:
		for _, query := range item.Params.Queries {
			if w.shouldStop(ctx, run) {
				break
			}
			w.handleSearch(ctx, run, query)
		}
	case scout.JobKindInstagramExpand:
		w.handleExpand(ctx, run)
	case scout.JobKindTikTokAnalyze:
		w.handleAnalyze(ctx, run)
	default:
		run.errText = fmt.Errorf("kind %q: %w", kind, scout.ErrInvalidJob).Error()
	}

	// The job context may already be done; the final write must still land.
	finalCtx := context.WithoutCancel(ctx)
	status, errText := w.deriveFinalStatus(finalCtx, ctx.Err() != nil, run)
	err = w.jobStore.UpdateJobStatus(finalCtx, item.JobID, status, errText, run.counters)
	switch {
	case errors.Is(err, scout.ErrJobFinished):
		// Canceled after the last check; the stored status wins.
		if job, gerr := w.jobStore.GetJob(finalCtx, item.JobID); gerr == nil {
			status = job.Status
		}
	case err != nil:
		w.logger.Error("final job status update failed", zap.String("job_id", item.JobID), zap.Error(err))
	}
	metrics.ObserveJob(kind, string(status))
	w.logger.Info("job finished",
		zap.String("job_id", item.JobID),
		zap.String("kind", kind),
		zap.String("status", string(status)),
		zap.Int("profiles_stored", run.counters.ProfilesStored),
		zap.Int("emails_found", run.counters.EmailsFound),
		zap.Int("phones_found", run.counters.PhonesFound),
	)
}

// shouldStop reports whether the job was canceled, either through ctx or via
// the job store.
func (w *Worker) shouldStop(ctx context.Context, run *jobRun) bool {
	if ctx.Err() != nil {
		return true
	}
	if w.canceled(ctx, run.item.JobID) {
		run.stopped = true
		return true
	}
	return false
}

func (w *Worker) canceled(ctx context.Context, jobID string) bool {
	job, err := w.jobStore.GetJob(ctx, jobID)
	if err != nil {
		return false
	}
	return job.Status == scout.JobStatusCanceled
}

func (w *Worker) handleSearch(ctx context.Context, run *jobRun, query string) {
	logger := w.logger.With(zap.String("job_id", run.item.JobID), zap.String("query", query))
	batch, err := w.source.SearchTikTok(ctx, query, run.item.Params.Limit)
	if err != nil {
		logger.Error("tiktok search failed", zap.Error(err))
		run.fail(fmt.Errorf("search %q: %w", query, err))
		return
	}
	if err := w.ingest(ctx, run, scout.PlatformTikTok, batch); err != nil {
		logger.Error("ingest failed", zap.Error(err))
		run.fail(err)
		return
	}
	run.processed++
}

func (w *Worker) handleExpand(ctx context.Context, run *jobRun) {
	logger := w.logger.With(zap.String("job_id", run.item.JobID))
	batch, err := w.source.ExpandInstagram(ctx, run.item.Params.Usernames, run.item.Params.Limit)
	if err != nil {
		logger.Error("instagram expansion failed", zap.Error(err))
		run.fail(fmt.Errorf("expand: %w", err))
		return
	}
	if err := w.ingest(ctx, run, scout.PlatformInstagram, batch); err != nil {
		logger.Error("ingest failed", zap.Error(err))
		run.fail(err)
		return
	}
	run.processed++
}

func (w *Worker) handleAnalyze(ctx context.Context, run *jobRun) {
	jobID := run.item.JobID
	logger := w.logger.With(zap.String("job_id", jobID))
	batch, err := w.source.AnalyzeTikTok(ctx, run.item.Params.Usernames)
	if err != nil {
		logger.Error("tiktok analyze failed", zap.Error(err))
		run.fail(fmt.Errorf("analyze: %w", err))
		return
	}
	uri := w.archive(ctx, jobID, batch.Raw)

	updated := map[string]int64{}
	for username, eng := range batch.Results {
		n, err := w.profiles.UpdateEngagement(ctx, scout.PlatformTikTok, username, eng)
		if err != nil {
			logger.Error("update engagement failed", zap.String("username", username), zap.Error(err))
			run.fail(fmt.Errorf("update engagement for %s: %w", username, err))
			continue
		}
		run.counters.ProfilesAnalyzed++
		updated[username] = n
	}
	if len(batch.Results) > 0 && run.counters.ProfilesAnalyzed == 0 {
		return
	}
	run.processed++

	w.publish(ctx, run, w.cfg.EngagementTopic, map[string]any{
		"job_id":    jobID,
		"run_id":    batch.RunID,
		"blob_uri":  uri,
		"results":   batch.Results,
		"rows":      updated,
		"timestamp": w.clock.Now().Format(time.RFC3339),
	})
}

// ingest turns a source batch into stored profiles.
func (w *Worker) ingest(ctx context.Context, run *jobRun, platform scout.Platform, batch scout.SourceBatch) error {
	jobID := run.item.JobID
	uri := w.archive(ctx, jobID, batch.Raw)

	items := scout.UniqueByUsername(batch.Items)
	run.counters.ProfilesFound += len(items)
	if w.resolver != nil {
		items = w.resolver.ResolveBios(ctx, items)
	}
	profiles, err := scout.NewProfiles(items, jobID, w.ids, w.clock.Now())
	if err != nil {
		return err
	}
	if err := w.profiles.InsertProfiles(ctx, profiles); err != nil {
		return fmt.Errorf("insert profiles: %w", err)
	}

	var emails, phones int
	for _, p := range profiles {
		if p.Email != "" {
			emails++
		}
		if p.Phone != "" {
			phones++
		}
	}
	run.counters.ProfilesStored += len(profiles)
	run.counters.EmailsFound += emails
	run.counters.PhonesFound += phones
	metrics.ObserveProfiles(string(platform), len(profiles))
	metrics.ObserveContacts("email", emails)
	metrics.ObserveContacts("phone", phones)

	w.publish(ctx, run, w.cfg.IngestTopic, map[string]any{
		"job_id":    jobID,
		"platform":  string(platform),
		"run_id":    batch.RunID,
		"blob_uri":  uri,
		"profiles":  len(profiles),
		"emails":    emails,
		"phones":    phones,
		"timestamp": w.clock.Now().Format(time.RFC3339),
	})
	return nil
}

// archive stores the raw dataset and returns its URI, or "" when archiving
// is disabled or fails. Failures never fail the batch.
func (w *Worker) archive(ctx context.Context, jobID string, raw []byte) string {
	if w.blobStore == nil || len(raw) == 0 {
		return ""
	}
	hash, err := w.hasher.Hash(raw)
	if err != nil {
		w.logger.Warn("hash raw dataset failed", zap.String("job_id", jobID), zap.Error(err))
		return ""
	}
	uri, err := w.blobStore.PutObject(ctx, w.buildBlobPath(jobID, hash), "application/json", bytes.NewReader(raw))
	if err != nil {
		w.logger.Warn("archive raw dataset failed", zap.String("job_id", jobID), zap.Error(err))
		return ""
	}
	return uri
}

func (w *Worker) buildBlobPath(jobID, hash string) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.json", jobID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.json", prefix, jobID, hash)
}

// publish is best effort: stored rows stay stored when the event is lost.
func (w *Worker) publish(ctx context.Context, run *jobRun, topic string, payload map[string]any) {
	if w.publisher == nil || topic == "" {
		return
	}
	if _, err := w.publisher.Publish(ctx, topic, payload); err != nil {
		w.logger.Warn("publish event failed",
			zap.String("job_id", run.item.JobID),
			zap.String("topic", topic),
			zap.Error(err),
		)
		run.errText = fmt.Errorf("publish %s: %w", topic, err).Error()
		return
	}
	w.logger.Debug("event published", zap.String("job_id", run.item.JobID), zap.String("topic", topic))
}

func (w *Worker) deriveFinalStatus(ctx context.Context, interrupted bool, run *jobRun) (scout.JobStatus, string) {
	errText := run.errText
	if run.processed == 0 && errText == "" {
		errText = "no batches were processed"
	}
	if !run.stopped && w.canceled(ctx, run.item.JobID) {
		run.stopped = true
	}
	switch {
	case run.stopped, interrupted:
		return scout.JobStatusCanceled, errText
	case run.processed == 0:
		return scout.JobStatusFailed, errText
	default:
		return scout.JobStatusSucceeded, errText
	}
}
