// Package dispatcher contains tests for job submission and worker coordination.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/metrics"
	"github.com/JakeFAU/kolscout/internal/scout"
	"github.com/JakeFAU/kolscout/internal/storage/memory"
	"github.com/JakeFAU/kolscout/internal/worker"
)

// TestDispatcherRunStartsWorkers ensures workers begin processing and stop on cancel.
func TestDispatcherRunStartsWorkers(t *testing.T) {
	t.Parallel()

	queue := &blockingQueue{started: make(chan struct{}, 1)}
	w := worker.New(queue, nil, nil, nil, nil, nil, nil, nil, nil, nil, worker.Config{}, zap.NewNop())
	dispatch := New(queue, nil, nil, nil, []*worker.Worker{w}, Config{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatch.Run(ctx)
		close(done)
	}()

	select {
	case <-queue.started:
	case <-time.After(time.Second):
		t.Fatal("worker did not begin dequeuing")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}
}

// TestDispatcherEnqueueForwardsErrors verifies queue errors are wrapped for callers.
func TestDispatcherEnqueueForwardsErrors(t *testing.T) {
	t.Parallel()

	queue := &errorQueue{err: errors.New("boom")}
	dispatch := New(queue, nil, nil, nil, nil, Config{}, zap.NewNop())

	err := dispatch.Enqueue(context.Background(), scout.QueueItem{JobID: "job"})
	if err == nil || err.Error() != "queue enqueue: boom" {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestDispatcherSubmit(t *testing.T) {
	t.Parallel()
	metrics.Init()

	queue := &recordingQueue{}
	jobs := memory.NewJobStore()
	dispatch := New(queue, jobs, &seqIDs{}, fixedClock{}, nil, Config{DefaultLimit: 20, MaxLimit: 50}, zap.NewNop())

	job, err := dispatch.Submit(context.Background(), scout.JobParameters{
		Kind:    scout.JobKindTikTokSearch,
		Queries: []string{" skincare ", "skincare"},
	})
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, scout.JobStatusQueued, job.Status)
	require.Equal(t, []string{"skincare"}, job.Parameters.Queries)
	require.Equal(t, 20, job.Parameters.Limit)

	require.Len(t, queue.items, 1)
	require.Equal(t, "job-1", queue.items[0].JobID)

	stored, err := jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, scout.JobStatusQueued, stored.Status)

	capped, err := dispatch.Submit(context.Background(), scout.JobParameters{
		Kind:      scout.JobKindInstagramExpand,
		Usernames: []string{"@ayu"},
		Limit:     500,
	})
	require.NoError(t, err)
	require.Equal(t, 50, capped.Parameters.Limit)
	require.Equal(t, []string{"ayu"}, capped.Parameters.Usernames)
}

func TestDispatcherSubmitRejectsInvalidParams(t *testing.T) {
	t.Parallel()

	queue := &recordingQueue{}
	dispatch := New(queue, memory.NewJobStore(), &seqIDs{}, fixedClock{}, nil, Config{}, zap.NewNop())

	_, err := dispatch.Submit(context.Background(), scout.JobParameters{Kind: scout.JobKindTikTokSearch, Queries: []string{" "}})
	require.ErrorIs(t, err, scout.ErrInvalidJob)
	require.Empty(t, queue.items)
}

func TestDispatcherSubmitMarksUnqueuedJobFailed(t *testing.T) {
	t.Parallel()

	jobs := memory.NewJobStore()
	dispatch := New(&errorQueue{err: errors.New("queue full")}, jobs, &seqIDs{}, fixedClock{}, nil, Config{}, zap.NewNop())

	_, err := dispatch.Submit(context.Background(), scout.JobParameters{
		Kind:      scout.JobKindTikTokAnalyze,
		Usernames: []string{"ayu"},
	})
	require.Error(t, err)
	job, err := jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, scout.JobStatusFailed, job.Status)
}

func TestDispatcherSubmitAnalyzeHasNoLimit(t *testing.T) {
	t.Parallel()
	metrics.Init()

	queue := &recordingQueue{}
	dispatch := New(queue, memory.NewJobStore(), &seqIDs{}, fixedClock{}, nil, Config{DefaultLimit: 30, MaxLimit: 100}, zap.NewNop())
	_, err := dispatch.Submit(context.Background(), scout.JobParameters{
		Kind:      scout.JobKindTikTokAnalyze,
		Usernames: []string{"ayu"},
		Limit:     500,
	})
	require.NoError(t, err)
	require.Len(t, queue.items, 1)
	require.Zero(t, queue.items[0].Params.Limit)
}

func TestDispatcherCancelFinishedJob(t *testing.T) {
	t.Parallel()

	jobs := memory.NewJobStore()
	require.NoError(t, jobs.CreateJob(context.Background(), scout.Job{ID: "job-9", Status: scout.JobStatusRunning}))
	require.NoError(t, jobs.UpdateJobStatus(context.Background(), "job-9", scout.JobStatusSucceeded, "", scout.JobCounters{}))
	dispatch := New(&recordingQueue{}, jobs, &seqIDs{}, fixedClock{}, nil, Config{}, zap.NewNop())

	job, err := dispatch.Cancel(context.Background(), "job-9")
	require.NoError(t, err)
	require.Equal(t, scout.JobStatusSucceeded, job.Status)
}

func TestDispatcherCancel(t *testing.T) {
	t.Parallel()
	metrics.Init()

	jobs := memory.NewJobStore()
	dispatch := New(&recordingQueue{}, jobs, &seqIDs{}, fixedClock{}, nil, Config{}, zap.NewNop())
	job, err := dispatch.Submit(context.Background(), scout.JobParameters{
		Kind:    scout.JobKindTikTokSearch,
		Queries: []string{"q"},
	})
	require.NoError(t, err)

	canceled, err := dispatch.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, scout.JobStatusCanceled, canceled.Status)

	again, err := dispatch.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, scout.JobStatusCanceled, again.Status)

	_, err = dispatch.Cancel(context.Background(), "missing")
	require.ErrorIs(t, err, scout.ErrNotFound)
}

type blockingQueue struct {
	started chan struct{}
}

func (q *blockingQueue) Enqueue(_ context.Context, _ scout.QueueItem) error {
	select {
	case q.started <- struct{}{}:
	default:
	}
	return nil
}

func (q *blockingQueue) Dequeue(ctx context.Context) (scout.QueueItem, error) {
	select {
	case q.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return scout.QueueItem{}, fmt.Errorf("blocking dequeue canceled: %w", ctx.Err())
}

type errorQueue struct {
	err error
}

func (q *errorQueue) Enqueue(context.Context, scout.QueueItem) error {
	return q.err
}

func (q *errorQueue) Dequeue(context.Context) (scout.QueueItem, error) {
	return scout.QueueItem{}, nil
}

type recordingQueue struct {
	items []scout.QueueItem
}

func (q *recordingQueue) Enqueue(_ context.Context, item scout.QueueItem) error {
	q.items = append(q.items, item)
	return nil
}

func (q *recordingQueue) Dequeue(ctx context.Context) (scout.QueueItem, error) {
	<-ctx.Done()
	return scout.QueueItem{}, ctx.Err()
}

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("job-%d", s.n), nil
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Unix(1700000000, 0).UTC() }
