package scout

import (
	"context"
	"io"
	"time"
)

// JobStore persists job metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, counters JobCounters) error
	GetJob(ctx context.Context, jobID string) (Job, error)
}

// ProfileStore persists the scrape history.
type ProfileStore interface {
	InsertProfiles(ctx context.Context, profiles []Profile) error
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]Profile, error)
	GetProfile(ctx context.Context, id string) (Profile, error)
	UpdateContact(ctx context.Context, id string, update ContactUpdate) error
	UpdateEngagement(ctx context.Context, platform Platform, username string, eng Engagement) (int64, error)
	ClearProfiles(ctx context.Context, platform Platform) (int64, error)
}

// CandidateStore persists campaign shortlists.
type CandidateStore interface {
	InsertCandidates(ctx context.Context, candidates []Candidate) error
	ListCandidates(ctx context.Context, campaignID string) ([]Candidate, error)
	DeleteCandidates(ctx context.Context, ids []string) (int64, error)
}

// CampaignStore persists campaigns.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, campaign Campaign) error
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	ListCampaigns(ctx context.Context, statuses ...CampaignStatus) ([]Campaign, error)
}

// Store bundles every persistence concern one backend provides.
type Store interface {
	ProfileStore
	CandidateStore
	CampaignStore
	Close()
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes ingestion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue provides enqueue/dequeue semantics for scrape jobs.
type Queue interface {
	Enqueue(ctx context.Context, job QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// ProfileSource runs the scraping actors.
type ProfileSource interface {
	SearchTikTok(ctx context.Context, query string, limit int) (SourceBatch, error)
	ExpandInstagram(ctx context.Context, usernames []string, limit int) (SourceBatch, error)
	AnalyzeTikTok(ctx context.Context, usernames []string) (EngagementBatch, error)
}

// BioResolver fills in bios that the source did not return.
type BioResolver interface {
	ResolveBios(ctx context.Context, items []SourceItem) []SourceItem
}

// Hasher computes digests for cache keys and blob names.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
