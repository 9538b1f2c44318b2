// Package postgres persists profiles, candidates and campaigns in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/kolscout/internal/scout"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store implements scout.Store on Postgres.
type Store struct {
	db DB
}

// New parses cfg, opens a pool and pings it.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: pool}, nil
}

// NewWithDB wraps an existing pool (primarily for testing).
func NewWithDB(db DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const creatorColumns = `platform, username, kol_name, followers, avg_views, status, tier, avatar,
	contact, email, er, profile_url, is_verified, category, region, segment, bio, total_likes, total_videos`

func creatorArgs(c scout.Creator) []any {
	return []any{
		string(c.Platform), c.Username, c.KOLName, c.Followers, c.AvgViews, c.Status, c.Tier, c.AvatarURL,
		c.Phone, c.Email, c.ER, c.ProfileURL, c.Verified, c.Category, c.Region, c.Segment, c.Bio,
		c.TotalLikes, c.TotalVideos,
	}
}

func creatorDest(c *scout.Creator, platform *string) []any {
	return []any{
		platform, &c.Username, &c.KOLName, &c.Followers, &c.AvgViews, &c.Status, &c.Tier, &c.AvatarURL,
		&c.Phone, &c.Email, &c.ER, &c.ProfileURL, &c.Verified, &c.Category, &c.Region, &c.Segment, &c.Bio,
		&c.TotalLikes, &c.TotalVideos,
	}
}

const insertProfileSQL = `INSERT INTO scraper_history (id, job_id, created_at, ` + creatorColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`

// InsertProfiles writes the batch in one transaction.
func (s *Store) InsertProfiles(ctx context.Context, profiles []scout.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, p := range profiles {
			args := append([]any{p.ID, p.JobID, p.CreatedAt}, creatorArgs(p.Creator)...)
			if _, err := tx.Exec(ctx, insertProfileSQL, args...); err != nil {
				return fmt.Errorf("insert profile %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

const selectProfileSQL = `SELECT id, job_id, created_at, ` + creatorColumns + ` FROM scraper_history`

// ListProfiles returns matching history rows, newest first.
func (s *Store) ListProfiles(ctx context.Context, filter scout.ProfileFilter) ([]scout.Profile, error) {
	query := selectProfileSQL + `
WHERE ($1 = '' OR platform = $1)
  AND ($2 = '' OR job_id = $2)
  AND ($3 = '' OR username ILIKE $3 OR kol_name ILIKE $3 OR bio ILIKE $3)
ORDER BY created_at DESC, id`
	rows, err := s.db.Query(ctx, query, string(filter.Platform), filter.JobID, likePattern(filter.Search))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []scout.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

// GetProfile fetches one history row.
func (s *Store) GetProfile(ctx context.Context, id string) (scout.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, selectProfileSQL+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return scout.Profile{}, fmt.Errorf("profile %s: %w", id, scout.ErrNotFound)
	}
	return p, err
}

func scanProfile(row pgx.Row) (scout.Profile, error) {
	var (
		p        scout.Profile
		platform string
	)
	dest := append([]any{&p.ID, &p.JobID, &p.CreatedAt}, creatorDest(&p.Creator, &platform)...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan profile: %w", err)
	}
	p.Platform = scout.Platform(platform)
	return p, nil
}

// UpdateContact overwrites the non-empty fields of update.
func (s *Store) UpdateContact(ctx context.Context, id string, update scout.ContactUpdate) error {
	tag, err := s.db.Exec(ctx, `UPDATE scraper_history
SET email = COALESCE(NULLIF($2, ''), email), contact = COALESCE(NULLIF($3, ''), contact)
WHERE id = $1`, id, update.Email, update.Phone)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", id, scout.ErrNotFound)
	}
	return nil
}

// UpdateEngagement sets avg views and ER on every row for the username.
func (s *Store) UpdateEngagement(
	ctx context.Context,
	platform scout.Platform,
	username string,
	eng scout.Engagement,
) (int64, error) {
	tag, err := s.db.Exec(ctx, `UPDATE scraper_history SET avg_views = $3, er = $4
WHERE platform = $1 AND lower(username) = lower($2)`, string(platform), username, eng.AvgViews, eng.ER)
	if err != nil {
		return 0, fmt.Errorf("update engagement: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClearProfiles deletes the history for a platform, or everything when
// platform is empty.
func (s *Store) ClearProfiles(ctx context.Context, platform scout.Platform) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM scraper_history WHERE ($1 = '' OR platform = $1)`, string(platform))
	if err != nil {
		return 0, fmt.Errorf("clear profiles: %w", err)
	}
	return tag.RowsAffected(), nil
}

const insertCandidateSQL = `INSERT INTO candidates (id, campaign_id, profile_id, created_at, ` + creatorColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
ON CONFLICT (campaign_id, lower(username)) DO NOTHING`

// InsertCandidates writes the shortlist rows in one transaction. A username
// already in the campaign is skipped, so concurrent moves cannot duplicate it.
func (s *Store) InsertCandidates(ctx context.Context, candidates []scout.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, c := range candidates {
			args := append([]any{c.ID, c.CampaignID, c.ProfileID, c.CreatedAt}, creatorArgs(c.Creator)...)
			if _, err := tx.Exec(ctx, insertCandidateSQL, args...); err != nil {
				return fmt.Errorf("insert candidate %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// ListCandidates returns the shortlist of a campaign, or every candidate when
// campaignID is empty.
func (s *Store) ListCandidates(ctx context.Context, campaignID string) ([]scout.Candidate, error) {
	rows, err := s.db.Query(ctx, `SELECT id, campaign_id, profile_id, created_at, `+creatorColumns+`
FROM candidates WHERE ($1 = '' OR campaign_id = $1) ORDER BY created_at, id`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []scout.Candidate
	for rows.Next() {
		var (
			c        scout.Candidate
			platform string
		)
		dest := append([]any{&c.ID, &c.CampaignID, &c.ProfileID, &c.CreatedAt}, creatorDest(&c.Creator, &platform)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Platform = scout.Platform(platform)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// DeleteCandidates removes candidates by ID.
func (s *Store) DeleteCandidates(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM candidates WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete candidates: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CreateCampaign stores a campaign.
func (s *Store) CreateCampaign(ctx context.Context, c scout.Campaign) error {
	_, err := s.db.Exec(ctx, `INSERT INTO campaigns (id, brand_name, description, join_code, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`, c.ID, c.BrandName, c.Description, c.JoinCode, string(c.Status), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

const selectCampaignSQL = `SELECT id, brand_name, description, join_code, status, created_at FROM campaigns`

// GetCampaign fetches one campaign.
func (s *Store) GetCampaign(ctx context.Context, id string) (scout.Campaign, error) {
	c, err := scanCampaign(s.db.QueryRow(ctx, selectCampaignSQL+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return scout.Campaign{}, fmt.Errorf("campaign %s: %w", id, scout.ErrNotFound)
	}
	return c, err
}

// ListCampaigns returns campaigns in any of statuses (all when none given),
// newest first.
func (s *Store) ListCampaigns(ctx context.Context, statuses ...scout.CampaignStatus) ([]scout.Campaign, error) {
	filter := make([]string, 0, len(statuses))
	for _, st := range statuses {
		filter = append(filter, string(st))
	}
	rows, err := s.db.Query(ctx, selectCampaignSQL+`
WHERE (cardinality($1::text[]) = 0 OR status = ANY($1)) ORDER BY created_at DESC, id`, filter)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []scout.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return out, nil
}

func scanCampaign(row pgx.Row) (scout.Campaign, error) {
	var (
		c      scout.Campaign
		status string
	)
	if err := row.Scan(&c.ID, &c.BrandName, &c.Description, &c.JoinCode, &status, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan campaign: %w", err)
	}
	c.Status = scout.CampaignStatus(status)
	return c, nil
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(search string) string {
	search = strings.TrimSpace(search)
	if search == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(search) + "%"
}
