package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/kolscout/internal/scout"
)

var profileColumns = []string{
	"id", "job_id", "created_at", "platform", "username", "kol_name", "followers", "avg_views", "status",
	"tier", "avatar", "contact", "email", "er", "profile_url", "is_verified", "category", "region",
	"segment", "bio", "total_likes", "total_videos",
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewWithDB(mock)
	require.NoError(t, err)
	return store, mock
}

func sampleProfile(now time.Time) scout.Profile {
	return scout.Profile{
		ID:    "p1",
		JobID: "job-1",
		Creator: scout.Creator{
			Platform:  scout.PlatformTikTok,
			Username:  "ayu",
			KOLName:   "Ayu",
			Followers: 12000,
			Tier:      "Micro",
			Email:     "ayu@mail.com",
			Phone:     "6281234567890",
			Bio:       "endorse ayu@mail.com",
			Status:    "New",
			Segment:   "Custom",
		},
		CreatedAt: now,
	}
}

func profileRow(p scout.Profile) []any {
	return append([]any{p.ID, p.JobID, p.CreatedAt}, creatorArgs(p.Creator)...)
}

func TestNewWithDBRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithDB(nil)
	require.Error(t, err)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	_, err = New(context.Background(), Config{DSN: "::not a dsn::"})
	require.Error(t, err)
}

func TestInsertProfilesUsesTransaction(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	p := sampleProfile(time.Unix(1700000000, 0).UTC())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scraper_history").
		WithArgs(profileRow(p)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, store.InsertProfiles(context.Background(), []scout.Profile{p}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertProfilesRollsBackOnError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	p := sampleProfile(time.Unix(1700000000, 0).UTC())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scraper_history").
		WithArgs(profileRow(p)...).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := store.InsertProfiles(context.Background(), []scout.Profile{p})
	require.ErrorContains(t, err, "insert profile p1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertProfilesEmptyIsNoop(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	require.NoError(t, store.InsertProfiles(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProfilesFilters(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	p := sampleProfile(time.Unix(1700000000, 0).UTC())

	mock.ExpectQuery("SELECT id, job_id, created_at").
		WithArgs("tiktok", "job-1", `%50\%\_off%`).
		WillReturnRows(pgxmock.NewRows(profileColumns).AddRow(profileRow(p)...))

	got, err := store.ListProfiles(context.Background(), scout.ProfileFilter{
		Platform: scout.PlatformTikTok,
		JobID:    "job-1",
		Search:   " 50%_off ",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p, got[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePattern(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", likePattern("  "))
	assert.Equal(t, "%ayu%", likePattern("ayu"))
	assert.Equal(t, `%a\\b\_c%`, likePattern(`a\b_c`))
}

func TestGetProfileNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM scraper_history WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetProfile(context.Background(), "missing")
	require.ErrorIs(t, err, scout.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContact(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE scraper_history").
		WithArgs("p1", "ayu@mail.com", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE scraper_history").
		WithArgs("nope", "", "62811").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, store.UpdateContact(context.Background(), "p1", scout.ContactUpdate{Email: "ayu@mail.com"}))
	err := store.UpdateContact(context.Background(), "nope", scout.ContactUpdate{Phone: "62811"})
	require.ErrorIs(t, err, scout.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEngagementAndClear(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE scraper_history SET avg_views").
		WithArgs("tiktok", "Ayu", int64(5000), 4.25).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec("DELETE FROM scraper_history").
		WithArgs("").
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := store.UpdateEngagement(context.Background(), scout.PlatformTikTok, "Ayu",
		scout.Engagement{AvgViews: 5000, ER: 4.25, VideosChecked: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = store.ClearProfiles(context.Background(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidatesRoundTrip(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()
	c := scout.Candidate{
		ID:         "c1",
		CampaignID: "camp-1",
		ProfileID:  "p1",
		Creator:    sampleProfile(now).Creator,
		CreatedAt:  now,
	}
	row := append([]any{c.ID, c.CampaignID, c.ProfileID, c.CreatedAt}, creatorArgs(c.Creator)...)
	cols := append([]string{"id", "campaign_id", "profile_id"}, profileColumns[2:]...)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT INTO candidates.*ON CONFLICT \(campaign_id, lower\(username\)\) DO NOTHING`).
		WithArgs(row...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM candidates").WithArgs("camp-1").WillReturnRows(pgxmock.NewRows(cols).AddRow(row...))
	mock.ExpectExec("DELETE FROM candidates").
		WithArgs([]string{"c1"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	ctx := context.Background()
	require.NoError(t, store.InsertCandidates(ctx, []scout.Candidate{c}))
	got, err := store.ListCandidates(ctx, "camp-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c, got[0])
	n, err := store.DeleteCandidates(ctx, []string{"c1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.DeleteCandidates(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaigns(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()
	camp := scout.Campaign{
		ID:          "camp-1",
		BrandName:   "Kopi",
		Description: "launch",
		JoinCode:    "CAMP1A",
		Status:      scout.CampaignActive,
		CreatedAt:   now,
	}
	cols := []string{"id", "brand_name", "description", "join_code", "status", "created_at"}

	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(camp.ID, camp.BrandName, camp.Description, camp.JoinCode, "Active", camp.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs("camp-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("camp-1", "Kopi", "launch", "CAMP1A", "Active", now))
	mock.ExpectQuery("FROM campaigns").
		WithArgs([]string{"Active", "Draft"}).
		WillReturnRows(pgxmock.NewRows(cols).AddRow("camp-1", "Kopi", "launch", "CAMP1A", "Active", now))
	mock.ExpectQuery("FROM campaigns WHERE id").
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)

	ctx := context.Background()
	require.NoError(t, store.CreateCampaign(ctx, camp))
	got, err := store.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, camp, got)
	list, err := store.ListCampaigns(ctx, scout.CampaignActive, scout.CampaignDraft)
	require.NoError(t, err)
	assert.Equal(t, []scout.Campaign{camp}, list)
	_, err = store.GetCampaign(ctx, "gone")
	require.ErrorIs(t, err, scout.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	for _, stmt := range schema {
		verb := strings.Fields(stmt)[0]
		mock.ExpectExec(verb).WillReturnResult(pgxmock.NewResult(verb, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaCandidatesUniquePerCampaign(t *testing.T) {
	t.Parallel()

	dedupe, unique := -1, -1
	for i, stmt := range schema {
		switch {
		case strings.HasPrefix(stmt, "DELETE FROM candidates"):
			dedupe = i
		case strings.Contains(stmt, "UNIQUE INDEX IF NOT EXISTS candidates_campaign_username_key"):
			unique = i
			assert.Contains(t, stmt, "(campaign_id, lower(username))")
		}
	}
	require.NotEqual(t, -1, unique, "missing unique candidate index")
	require.NotEqual(t, -1, dedupe, "missing duplicate cleanup")
	assert.Less(t, dedupe, unique)
}
