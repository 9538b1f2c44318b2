// Package supabase persists profiles, candidates and campaigns through the
// Supabase PostgREST API. Table layout matches the postgres package.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/supabase-community/postgrest-go"
	supabasego "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/scout"
)

const (
	tableProfiles   = "scraper_history"
	tableCandidates = "candidates"
	tableCampaigns  = "campaigns"
)

// Config holds the project URL and service key.
type Config struct {
	URL string
	Key string
}

// tables is satisfied by both *supabase.Client and *postgrest.Client.
type tables interface {
	From(table string) *postgrest.QueryBuilder
}

// Store implements scout.Store on Supabase.
type Store struct {
	db     tables
	logger *zap.Logger
}

// New connects to a Supabase project.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("supabase url and key are required")
	}
	client, err := supabasego.NewClient(cfg.URL, cfg.Key, &supabasego.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing PostgREST-capable client.
func NewWithClient(db tables, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("supabase")}
}

// Close is a no-op; the REST client holds no long-lived connections.
func (s *Store) Close() {}

// InsertProfiles writes history rows in one request.
func (s *Store) InsertProfiles(_ context.Context, profiles []scout.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	if _, _, err := s.db.From(tableProfiles).Insert(profiles, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("insert profiles: %w", err)
	}
	s.logger.Debug("profiles inserted", zap.Int("count", len(profiles)))
	return nil
}

// ListProfiles returns matching history rows, newest first.
func (s *Store) ListProfiles(_ context.Context, filter scout.ProfileFilter) ([]scout.Profile, error) {
	q := s.db.From(tableProfiles).Select("*", "", false)
	if filter.Platform != "" {
		q = q.Eq("platform", string(filter.Platform))
	}
	if filter.JobID != "" {
		q = q.Eq("job_id", filter.JobID)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := quote("*" + likeEscaper.Replace(term) + "*")
		q = q.Or(fmt.Sprintf("username.ilike.%[1]s,kol_name.ilike.%[1]s,bio.ilike.%[1]s", pattern), "")
	}
	q = q.Order("created_at", &postgrest.OrderOpts{Ascending: false})

	var out []scout.Profile
	if _, err := q.ExecuteTo(&out); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

// GetProfile fetches one history row.
func (s *Store) GetProfile(_ context.Context, id string) (scout.Profile, error) {
	var rows []scout.Profile
	if _, err := s.db.From(tableProfiles).Select("*", "", false).Eq("id", id).ExecuteTo(&rows); err != nil {
		return scout.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if len(rows) == 0 {
		return scout.Profile{}, fmt.Errorf("profile %s: %w", id, scout.ErrNotFound)
	}
	return rows[0], nil
}

// UpdateContact overwrites the non-empty fields of update.
func (s *Store) UpdateContact(_ context.Context, id string, update scout.ContactUpdate) error {
	fields := map[string]string{}
	if update.Email != "" {
		fields["email"] = update.Email
	}
	if update.Phone != "" {
		fields["contact"] = update.Phone
	}
	if len(fields) == 0 {
		return nil
	}
	_, n, err := s.db.From(tableProfiles).Update(fields, "minimal", "exact").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", id, scout.ErrNotFound)
	}
	return nil
}

// UpdateEngagement sets avg views and ER on every row for the username.
func (s *Store) UpdateEngagement(
	_ context.Context,
	platform scout.Platform,
	username string,
	eng scout.Engagement,
) (int64, error) {
	fields := map[string]any{"avg_views": eng.AvgViews, "er": eng.ER}
	_, n, err := s.db.From(tableProfiles).
		Update(fields, "minimal", "exact").
		Eq("platform", string(platform)).
		Ilike("username", likeEscaper.Replace(username)).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("update engagement: %w", err)
	}
	return n, nil
}

// ClearProfiles deletes the history for a platform, or everything when
// platform is empty.
func (s *Store) ClearProfiles(_ context.Context, platform scout.Platform) (int64, error) {
	q := s.db.From(tableProfiles).Delete("minimal", "exact")
	if platform != "" {
		q = q.Eq("platform", string(platform))
	} else {
		// Supabase rejects unfiltered deletes.
		q = q.Neq("id", "")
	}
	_, n, err := q.Execute()
	if err != nil {
		return 0, fmt.Errorf("clear profiles: %w", err)
	}
	return n, nil
}

// InsertCandidates writes shortlist rows in one request.
func (s *Store) InsertCandidates(_ context.Context, candidates []scout.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	if _, _, err := s.db.From(tableCandidates).Insert(candidates, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("insert candidates: %w", err)
	}
	return nil
}

// ListCandidates returns the shortlist of a campaign, or every candidate when
// campaignID is empty.
func (s *Store) ListCandidates(_ context.Context, campaignID string) ([]scout.Candidate, error) {
	q := s.db.From(tableCandidates).Select("*", "", false)
	if campaignID != "" {
		q = q.Eq("campaign_id", campaignID)
	}
	q = q.Order("created_at", &postgrest.OrderOpts{Ascending: true})
	var out []scout.Candidate
	if _, err := q.ExecuteTo(&out); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return out, nil
}

// DeleteCandidates removes candidates by ID.
func (s *Store) DeleteCandidates(_ context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	_, n, err := s.db.From(tableCandidates).Delete("minimal", "exact").In("id", ids).Execute()
	if err != nil {
		return 0, fmt.Errorf("delete candidates: %w", err)
	}
	return n, nil
}

// CreateCampaign stores a campaign.
func (s *Store) CreateCampaign(_ context.Context, campaign scout.Campaign) error {
	if _, _, err := s.db.From(tableCampaigns).Insert(campaign, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetCampaign fetches one campaign.
func (s *Store) GetCampaign(_ context.Context, id string) (scout.Campaign, error) {
	var rows []scout.Campaign
	if _, err := s.db.From(tableCampaigns).Select("*", "", false).Eq("id", id).ExecuteTo(&rows); err != nil {
		return scout.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	if len(rows) == 0 {
		return scout.Campaign{}, fmt.Errorf("campaign %s: %w", id, scout.ErrNotFound)
	}
	return rows[0], nil
}

// ListCampaigns returns campaigns in any of statuses (all when none given),
// newest first.
func (s *Store) ListCampaigns(_ context.Context, statuses ...scout.CampaignStatus) ([]scout.Campaign, error) {
	q := s.db.From(tableCampaigns).Select("*", "", false)
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, st := range statuses {
			values = append(values, string(st))
		}
		q = q.In("status", values)
	}
	q = q.Order("created_at", &postgrest.OrderOpts{Ascending: false})
	var out []scout.Campaign
	if _, err := q.ExecuteTo(&out); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// quote wraps a PostgREST filter value so commas and parentheses survive
// inside or=(...).
func quote(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}
