// Package memory provides in-memory stores for local development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/kolscout/internal/scout"
)

// JobStore keeps scrape jobs in memory.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]scout.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]scout.Job),
	}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job scout.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus updates the status and counters for a job. Terminal jobs
// are never moved to another status; such updates return ErrJobFinished.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status scout.JobStatus,
	errText string,
	counters scout.JobCounters,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, scout.ErrNotFound)
	}
	if job.Status.Terminal() {
		if job.Status != status {
			return fmt.Errorf("job %s is %s: %w", jobID, job.Status, scout.ErrJobFinished)
		}
		// Same terminal status: keep the first reason, refresh counters.
		if job.ErrorText == "" {
			job.ErrorText = errText
		}
		job.Counters = counters
		s.jobs[jobID] = job
		return nil
	}
	job.Status = status
	job.ErrorText = errText
	job.Counters = counters
	now := time.Now().UTC()
	if status == scout.JobStatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if status.Terminal() && job.Finished == nil {
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (scout.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scout.Job{}, fmt.Errorf("job %s: %w", jobID, scout.ErrNotFound)
	}
	return job, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
