package scout

import (
	"time"
)

// Platform identifies the social network a creator was scraped from.
type Platform string

// Supported platforms.
const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTikTok, PlatformInstagram:
		return true
	default:
		return false
	}
}

// JobKind selects the scrape pipeline a job runs.
type JobKind string

// Job kinds accepted by the worker.
const (
	JobKindTikTokSearch    JobKind = "tiktok_search"
	JobKindInstagramExpand JobKind = "instagram_expand"
	JobKindTikTokAnalyze   JobKind = "tiktok_analyze"
)

// Platform returns the platform the job kind scrapes.
func (k JobKind) Platform() Platform {
	if k == JobKindInstagramExpand {
		return PlatformInstagram
	}
	return PlatformTikTok
}

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// JobParameters captures what a client asked a job to scrape.
type JobParameters struct {
	Kind      JobKind           `json:"kind" mapstructure:"kind"`
	Queries   []string          `json:"queries,omitempty" mapstructure:"queries"`
	Usernames []string          `json:"usernames,omitempty" mapstructure:"usernames"`
	Limit     int               `json:"limit" mapstructure:"limit"`
	Tags      map[string]string `json:"tags,omitempty" mapstructure:"tags"`
}

// Job represents the metadata persisted for each submitted scrape request.
type Job struct {
	ID         string        `json:"id"`
	Status     JobStatus     `json:"status"`
	Submitted  time.Time     `json:"submitted_at"`
	Started    *time.Time    `json:"started_at,omitempty"`
	Finished   *time.Time    `json:"finished_at,omitempty"`
	ErrorText  string        `json:"error_text,omitempty"`
	Parameters JobParameters `json:"parameters"`
	Counters   JobCounters   `json:"counters"`
}

// JobCounters tracks per-job ingestion stats.
type JobCounters struct {
	ProfilesFound    int `json:"profiles_found"`
	ProfilesStored   int `json:"profiles_stored"`
	EmailsFound      int `json:"emails_found"`
	PhonesFound      int `json:"phones_found"`
	ProfilesAnalyzed int `json:"profiles_analyzed"`
	BatchesFailed    int `json:"batches_failed"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Params    JobParameters
	Attempt   int
	Submitted int64
}

// SourceItem is one creator as returned by a scraping actor, normalized across
// platforms. Email and Phone hold values the source itself extracted, if any.
type SourceItem struct {
	Platform    Platform `json:"platform"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	AvatarURL   string   `json:"avatar_url"`
	ProfileURL  string   `json:"profile_url"`
	Followers   int64    `json:"followers"`
	AvgViews    int64    `json:"avg_views"`
	TotalLikes  int64    `json:"total_likes"`
	TotalVideos int64    `json:"total_videos"`
	ER          float64  `json:"er"`
	Verified    bool     `json:"verified"`
	Category    string   `json:"category"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
}

// SourceBatch is the outcome of one actor run.
type SourceBatch struct {
	RunID string       `json:"run_id"`
	Items []SourceItem `json:"items"`
	Raw   []byte       `json:"-"`
}

// EngagementBatch is the outcome of an analyze run, keyed by lower-cased username.
type EngagementBatch struct {
	RunID   string                `json:"run_id"`
	Results map[string]Engagement `json:"results"`
	Raw     []byte                `json:"-"`
}

// Engagement summarizes recent video performance for a creator.
type Engagement struct {
	AvgViews      int64   `json:"avg_views"`
	ER            float64 `json:"er"`
	VideosChecked int     `json:"latest_videos_checked"`
}

// VideoStats is the per-video input to AnalyzeEngagement.
type VideoStats struct {
	Plays    int64
	Likes    int64
	Comments int64
	Shares   int64
}

// Creator holds the columns shared by history rows and campaign candidates.
type Creator struct {
	Platform    Platform `json:"platform"`
	Username    string   `json:"username"`
	KOLName     string   `json:"kol_name"`
	Followers   int64    `json:"followers"`
	AvgViews    int64    `json:"avg_views"`
	Status      string   `json:"status"`
	Tier        string   `json:"tier"`
	AvatarURL   string   `json:"avatar"`
	Phone       string   `json:"contact"`
	Email       string   `json:"email"`
	ER          float64  `json:"er"`
	ProfileURL  string   `json:"profile_url"`
	Verified    bool     `json:"is_verified"`
	Category    string   `json:"category"`
	Region      string   `json:"region"`
	Segment     string   `json:"segment"`
	Bio         string   `json:"bio"`
	TotalLikes  int64    `json:"total_likes"`
	TotalVideos int64    `json:"total_videos"`
}

// Profile is a scraped creator kept in the search history.
type Profile struct {
	ID    string `json:"id"`
	JobID string `json:"job_id"`
	Creator
	CreatedAt time.Time `json:"created_at"`
}

// ProfileFilter narrows ListProfiles. Zero values match everything.
type ProfileFilter struct {
	Platform Platform
	JobID    string
	Search   string
}

// ContactUpdate carries the contact fields to overwrite. Empty fields are left
// untouched.
type ContactUpdate struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"contact,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ContactUpdate) Empty() bool {
	return u.Email == "" && u.Phone == ""
}

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

// Campaign statuses.
const (
	CampaignDraft     CampaignStatus = "Draft"
	CampaignActive    CampaignStatus = "Active"
	CampaignCompleted CampaignStatus = "Completed"
)

// Valid reports whether s is a known status.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignCompleted:
		return true
	default:
		return false
	}
}

// AcceptsCandidates reports whether candidates may still be added.
func (s CampaignStatus) AcceptsCandidates() bool {
	return s == CampaignActive || s == CampaignDraft
}

// Campaign is a brand engagement that candidates are shortlisted into.
type Campaign struct {
	ID          string         `json:"id"`
	BrandName   string         `json:"brand_name"`
	Description string         `json:"description"`
	JoinCode    string         `json:"join_code"`
	Status      CampaignStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Candidate is a creator shortlisted for a campaign.
type Candidate struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	ProfileID  string `json:"profile_id,omitempty"`
	Creator
	CreatedAt time.Time `json:"created_at"`
}

// DedupeScope decides which candidates count as duplicates of each other.
type DedupeScope string

// Dedupe scopes.
const (
	DedupePerCampaign DedupeScope = "campaign"
	DedupeGlobal      DedupeScope = "global"
)
