package scout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Roster runs the curation operations staff perform on stored profiles and
// campaign shortlists.
type Roster struct {
	profiles   ProfileStore
	candidates CandidateStore
	campaigns  CampaignStore
	ids        IDGenerator
	clock      Clock
	logger     *zap.Logger
}

// NewRoster constructs a Roster.
func NewRoster(
	profiles ProfileStore,
	candidates CandidateStore,
	campaigns CampaignStore,
	ids IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *Roster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roster{
		profiles:   profiles,
		candidates: candidates,
		campaigns:  campaigns,
		ids:        ids,
		clock:      clock,
		logger:     logger,
	}
}

// ScanResult reports a contact scan.
type ScanResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

// ScanContacts re-extracts contacts from stored bios and fills in whatever
// was missing. Existing values are never overwritten.
func (r *Roster) ScanContacts(ctx context.Context, platform Platform) (ScanResult, error) {
	profiles, err := r.profiles.ListProfiles(ctx, ProfileFilter{Platform: platform})
	if err != nil {
		return ScanResult{}, fmt.Errorf("list profiles: %w", err)
	}
	var res ScanResult
	for _, p := range profiles {
		res.Scanned++
		update, ok := FillMissingContacts(p.Creator)
		if !ok {
			continue
		}
		if err := r.profiles.UpdateContact(ctx, p.ID, update); err != nil {
			return res, fmt.Errorf("update contact for %s: %w", p.ID, err)
		}
		res.Updated++
	}
	r.logger.Info("contact scan finished",
		zap.String("platform", string(platform)),
		zap.Int("scanned", res.Scanned),
		zap.Int("updated", res.Updated),
	)
	return res, nil
}

// CreateCampaign opens a campaign. Status defaults to Active; the join code is
// six upper-case characters taken from the tail of the campaign ID.
func (r *Roster) CreateCampaign(
	ctx context.Context,
	brandName string,
	description string,
	status CampaignStatus,
) (Campaign, error) {
	brandName = strings.TrimSpace(brandName)
	if brandName == "" {
		return Campaign{}, fmt.Errorf("%w: brand name is required", ErrInvalidInput)
	}
	if status == "" {
		status = CampaignActive
	}
	if !status.Valid() {
		return Campaign{}, fmt.Errorf("%w: unknown campaign status %q", ErrInvalidInput, status)
	}
	id, err := r.ids.NewID()
	if err != nil {
		return Campaign{}, fmt.Errorf("generate campaign id: %w", err)
	}
	campaign := Campaign{
		ID:          id,
		BrandName:   brandName,
		Description: strings.TrimSpace(description),
		JoinCode:    joinCode(id),
		Status:      status,
		CreatedAt:   r.clock.Now(),
	}
	if err := r.campaigns.CreateCampaign(ctx, campaign); err != nil {
		return Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	r.logger.Info("campaign created",
		zap.String("campaign_id", campaign.ID),
		zap.String("brand", campaign.BrandName),
	)
	return campaign, nil
}

func joinCode(id string) string {
	const size = 6
	code := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			code = append(code, c)
		}
	}
	if len(code) > size {
		code = code[len(code)-size:]
	}
	return strings.ToUpper(string(code))
}

// MoveResult reports a move into a campaign.
type MoveResult struct {
	Inserted []Candidate `json:"inserted"`
	Skipped  []string    `json:"skipped"`
}

// MoveToCampaign copies stored profiles into a campaign shortlist. Profiles
// whose username is already shortlisted in the campaign are skipped.
func (r *Roster) MoveToCampaign(ctx context.Context, campaignID string, profileIDs []string) (MoveResult, error) {
	if len(profileIDs) == 0 {
		return MoveResult{}, fmt.Errorf("%w: at least one profile id required", ErrInvalidInput)
	}
	campaign, err := r.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return MoveResult{}, fmt.Errorf("get campaign: %w", err)
	}
	if !campaign.Status.AcceptsCandidates() {
		return MoveResult{}, fmt.Errorf("%w: %s is %s", ErrCampaignClosed, campaign.ID, campaign.Status)
	}

	existing, err := r.candidates.ListCandidates(ctx, campaign.ID)
	if err != nil {
		return MoveResult{}, fmt.Errorf("list candidates: %w", err)
	}
	shortlisted := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		shortlisted[strings.ToLower(c.Username)] = struct{}{}
	}

	var res MoveResult
	now := r.clock.Now()
	for _, profileID := range profileIDs {
		profile, err := r.profiles.GetProfile(ctx, profileID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				res.Skipped = append(res.Skipped, profileID)
				continue
			}
			return MoveResult{}, fmt.Errorf("get profile %s: %w", profileID, err)
		}
		key := strings.ToLower(profile.Username)
		if _, dup := shortlisted[key]; dup {
			res.Skipped = append(res.Skipped, profileID)
			continue
		}
		id, err := r.ids.NewID()
		if err != nil {
			return MoveResult{}, fmt.Errorf("generate candidate id: %w", err)
		}
		shortlisted[key] = struct{}{}
		res.Inserted = append(res.Inserted, Candidate{
			ID:         id,
			CampaignID: campaign.ID,
			ProfileID:  profile.ID,
			Creator:    profile.Creator,
			CreatedAt:  now,
		})
	}

	if len(res.Inserted) > 0 {
		if err := r.candidates.InsertCandidates(ctx, res.Inserted); err != nil {
			return MoveResult{}, fmt.Errorf("insert candidates: %w", err)
		}
	}
	r.logger.Info("moved profiles to campaign",
		zap.String("campaign_id", campaign.ID),
		zap.Int("inserted", len(res.Inserted)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// DedupeResult reports a de-duplication pass.
type DedupeResult struct {
	Scope      DedupeScope `json:"scope"`
	Total      int         `json:"total"`
	Duplicates []string    `json:"duplicates"`
	Deleted    int64       `json:"deleted"`
	DryRun     bool        `json:"dry_run"`
}

// Dedupe removes repeated candidates. With dryRun set it only reports them.
func (r *Roster) Dedupe(ctx context.Context, scope DedupeScope, dryRun bool) (DedupeResult, error) {
	all, err := r.candidates.ListCandidates(ctx, "")
	if err != nil {
		return DedupeResult{}, fmt.Errorf("list candidates: %w", err)
	}
	res := DedupeResult{
		Scope:      scope,
		Total:      len(all),
		Duplicates: FindDuplicates(all, scope),
		DryRun:     dryRun,
	}
	if dryRun || len(res.Duplicates) == 0 {
		return res, nil
	}
	deleted, err := r.candidates.DeleteCandidates(ctx, res.Duplicates)
	if err != nil {
		return res, fmt.Errorf("delete duplicates: %w", err)
	}
	res.Deleted = deleted
	r.logger.Info("candidates de-duplicated",
		zap.String("scope", string(scope)),
		zap.Int("total", res.Total),
		zap.Int64("deleted", deleted),
	)
	return res, nil
}
