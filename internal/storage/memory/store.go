package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/kolscout/internal/scout"
)

// Store keeps profiles, candidates and campaigns in memory. It satisfies
// scout.Store.
type Store struct {
	mu         sync.RWMutex
	profiles   []scout.Profile
	candidates []scout.Candidate
	campaigns  map[string]scout.Campaign
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		campaigns: make(map[string]scout.Campaign),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// InsertProfiles appends history rows.
func (s *Store) InsertProfiles(_ context.Context, profiles []scout.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, profiles...)
	return nil
}

// ListProfiles returns matching profiles, newest first.
func (s *Store) ListProfiles(_ context.Context, filter scout.ProfileFilter) ([]scout.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]scout.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if filter.Platform != "" && p.Platform != filter.Platform {
			continue
		}
		if filter.JobID != "" && p.JobID != filter.JobID {
			continue
		}
		if search != "" && !matchesSearch(p.Creator, search) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetProfile fetches one profile.
func (s *Store) GetProfile(_ context.Context, id string) (scout.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return scout.Profile{}, fmt.Errorf("profile %s: %w", id, scout.ErrNotFound)
}

// UpdateContact overwrites the non-empty fields of update.
func (s *Store) UpdateContact(_ context.Context, id string, update scout.ContactUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].ID != id {
			continue
		}
		if update.Email != "" {
			s.profiles[i].Email = update.Email
		}
		if update.Phone != "" {
			s.profiles[i].Phone = update.Phone
		}
		return nil
	}
	return fmt.Errorf("profile %s: %w", id, scout.ErrNotFound)
}

// UpdateEngagement sets avg views and ER on every row for the username.
func (s *Store) UpdateEngagement(
	_ context.Context,
	platform scout.Platform,
	username string,
	eng scout.Engagement,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.profiles {
		p := &s.profiles[i]
		if p.Platform != platform || !strings.EqualFold(p.Username, username) {
			continue
		}
		p.AvgViews = eng.AvgViews
		p.ER = eng.ER
		n++
	}
	return n, nil
}

// ClearProfiles deletes the history for a platform, or everything when
// platform is empty.
func (s *Store) ClearProfiles(_ context.Context, platform scout.Platform) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.profiles[:0]
	var n int64
	for _, p := range s.profiles {
		if platform == "" || p.Platform == platform {
			n++
			continue
		}
		kept = append(kept, p)
	}
	s.profiles = kept
	return n, nil
}

// InsertCandidates appends shortlist rows.
func (s *Store) InsertCandidates(_ context.Context, candidates []scout.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append(s.candidates, candidates...)
	return nil
}

// ListCandidates returns the shortlist of a campaign, or every candidate when
// campaignID is empty.
func (s *Store) ListCandidates(_ context.Context, campaignID string) ([]scout.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scout.Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		if campaignID != "" && c.CampaignID != campaignID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// DeleteCandidates removes candidates by ID.
func (s *Store) DeleteCandidates(_ context.Context, ids []string) (int64, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.candidates[:0]
	var n int64
	for _, c := range s.candidates {
		if _, ok := drop[c.ID]; ok {
			n++
			continue
		}
		kept = append(kept, c)
	}
	s.candidates = kept
	return n, nil
}

// CreateCampaign stores a campaign.
func (s *Store) CreateCampaign(_ context.Context, campaign scout.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.campaigns[campaign.ID]; exists {
		return fmt.Errorf("campaign %s already exists", campaign.ID)
	}
	s.campaigns[campaign.ID] = campaign
	return nil
}

// GetCampaign fetches one campaign.
func (s *Store) GetCampaign(_ context.Context, id string) (scout.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return scout.Campaign{}, fmt.Errorf("campaign %s: %w", id, scout.ErrNotFound)
	}
	return c, nil
}

// ListCampaigns returns campaigns in any of statuses (all when none given),
// newest first.
func (s *Store) ListCampaigns(_ context.Context, statuses ...scout.CampaignStatus) ([]scout.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scout.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		if len(statuses) > 0 && !containsStatus(statuses, c.Status) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matchesSearch(c scout.Creator, search string) bool {
	return strings.Contains(strings.ToLower(c.Username), search) ||
		strings.Contains(strings.ToLower(c.KOLName), search) ||
		strings.Contains(strings.ToLower(c.Bio), search)
}

func containsStatus(statuses []scout.CampaignStatus, s scout.CampaignStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
