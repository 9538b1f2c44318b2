package scout_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/kolscout/internal/scout"
	"github.com/JakeFAU/kolscout/internal/storage/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type counterIDs struct{ n int }

func (c *counterIDs) NewID() (string, error) {
	c.n++
	return fmt.Sprintf("cand-%d", c.n), nil
}

func newRoster(t *testing.T) (*scout.Roster, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	clock := fixedClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	return scout.NewRoster(store, store, store, &counterIDs{}, clock, nil), store
}

func TestRosterScanContacts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	roster, store := newRoster(t)
	require.NoError(t, store.InsertProfiles(ctx, []scout.Profile{
		{ID: "p1", Creator: scout.Creator{Platform: scout.PlatformTikTok, Bio: "WA 0812 3456 7890", Email: "kept@x.com"}},
		{ID: "p2", Creator: scout.Creator{Platform: scout.PlatformTikTok, Bio: "just vibes"}},
		{ID: "p3", Creator: scout.Creator{Platform: scout.PlatformInstagram, Bio: "ig@x.com"}},
	}))

	res, err := roster.ScanContacts(ctx, scout.PlatformTikTok)
	require.NoError(t, err)
	assert.Equal(t, scout.ScanResult{Scanned: 2, Updated: 1}, res)

	p1, err := store.GetProfile(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "6281234567890", p1.Phone)
	assert.Equal(t, "kept@x.com", p1.Email)

	p3, _ := store.GetProfile(ctx, "p3")
	assert.Empty(t, p3.Email, "other platforms are left alone")
}

func TestRosterMoveToCampaign(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	roster, store := newRoster(t)
	require.NoError(t, store.CreateCampaign(ctx, scout.Campaign{ID: "open", Status: scout.CampaignActive}))
	require.NoError(t, store.CreateCampaign(ctx, scout.Campaign{ID: "done", Status: scout.CampaignCompleted}))
	require.NoError(t, store.InsertProfiles(ctx, []scout.Profile{
		{ID: "p1", Creator: scout.Creator{Username: "alice"}},
		{ID: "p2", Creator: scout.Creator{Username: "Alice"}},
		{ID: "p3", Creator: scout.Creator{Username: "bob"}},
	}))

	res, err := roster.MoveToCampaign(ctx, "open", []string{"p1", "p2", "missing", "p3"})
	require.NoError(t, err)
	require.Len(t, res.Inserted, 2)
	assert.Equal(t, []string{"p2", "missing"}, res.Skipped)
	assert.Equal(t, "p1", res.Inserted[0].ProfileID)
	assert.Equal(t, "open", res.Inserted[0].CampaignID)
	assert.Equal(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), res.Inserted[0].CreatedAt)

	again, err := roster.MoveToCampaign(ctx, "open", []string{"p3"})
	require.NoError(t, err)
	assert.Empty(t, again.Inserted)

	_, err = roster.MoveToCampaign(ctx, "done", []string{"p1"})
	assert.True(t, errors.Is(err, scout.ErrCampaignClosed))

	_, err = roster.MoveToCampaign(ctx, "ghost", []string{"p1"})
	assert.True(t, errors.Is(err, scout.ErrNotFound))

	_, err = roster.MoveToCampaign(ctx, "open", nil)
	assert.True(t, errors.Is(err, scout.ErrInvalidInput))
}

func TestRosterDedupe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	roster, store := newRoster(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertCandidates(ctx, []scout.Candidate{
		{ID: "k1", CampaignID: "A", Creator: scout.Creator{Username: "alice"}, CreatedAt: base},
		{ID: "k2", CampaignID: "A", Creator: scout.Creator{Username: "alice"}, CreatedAt: base.Add(time.Hour)},
		{ID: "k3", CampaignID: "B", Creator: scout.Creator{Username: "alice"}, CreatedAt: base.Add(2 * time.Hour)},
	}))

	dry, err := roster.Dedupe(ctx, scout.DedupeGlobal, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"k2", "k3"}, dry.Duplicates)
	assert.Zero(t, dry.Deleted)

	res, err := roster.Dedupe(ctx, scout.DedupePerCampaign, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Deleted)
	left, _ := store.ListCandidates(ctx, "")
	assert.Len(t, left, 2)
}

func TestRosterCreateCampaign(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	roster, store := newRoster(t)

	campaign, err := roster.CreateCampaign(ctx, "  Kopi Kenangan ", "launch", "")
	require.NoError(t, err)
	assert.Equal(t, "cand-1", campaign.ID)
	assert.Equal(t, "Kopi Kenangan", campaign.BrandName)
	assert.Equal(t, scout.CampaignActive, campaign.Status)
	assert.Equal(t, "CAND1", campaign.JoinCode)

	stored, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, campaign, stored)

	_, err = roster.CreateCampaign(ctx, " ", "", "")
	assert.True(t, errors.Is(err, scout.ErrInvalidInput))
	_, err = roster.CreateCampaign(ctx, "x", "", "Archived")
	assert.True(t, errors.Is(err, scout.ErrInvalidInput))
}
