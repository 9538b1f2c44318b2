package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scraper_history (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL DEFAULT '',
	platform     TEXT NOT NULL,
	username     TEXT NOT NULL,
	kol_name     TEXT NOT NULL DEFAULT '',
	followers    BIGINT NOT NULL DEFAULT 0,
	avg_views    BIGINT NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT '',
	tier         TEXT NOT NULL DEFAULT '',
	avatar       TEXT NOT NULL DEFAULT '',
	contact      TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	er           DOUBLE PRECISION NOT NULL DEFAULT 0,
	profile_url  TEXT NOT NULL DEFAULT '',
	is_verified  BOOLEAN NOT NULL DEFAULT FALSE,
	category     TEXT NOT NULL DEFAULT '',
	region       TEXT NOT NULL DEFAULT '',
	segment      TEXT NOT NULL DEFAULT '',
	bio          TEXT NOT NULL DEFAULT '',
	total_likes  BIGINT NOT NULL DEFAULT 0,
	total_videos BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS scraper_history_platform_username_idx ON scraper_history (platform, lower(username))`,
	`CREATE INDEX IF NOT EXISTS scraper_history_job_idx ON scraper_history (job_id)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
	id          TEXT PRIMARY KEY,
	brand_name  TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	join_code   TEXT NOT NULL UNIQUE,
	status      TEXT NOT NULL DEFAULT 'Active',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS candidates (
	id           TEXT PRIMARY KEY,
	campaign_id  TEXT NOT NULL REFERENCES campaigns (id) ON DELETE CASCADE,
	profile_id   TEXT NOT NULL DEFAULT '',
	platform     TEXT NOT NULL,
	username     TEXT NOT NULL,
	kol_name     TEXT NOT NULL DEFAULT '',
	followers    BIGINT NOT NULL DEFAULT 0,
	avg_views    BIGINT NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT '',
	tier         TEXT NOT NULL DEFAULT '',
	avatar       TEXT NOT NULL DEFAULT '',
	contact      TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	er           DOUBLE PRECISION NOT NULL DEFAULT 0,
	profile_url  TEXT NOT NULL DEFAULT '',
	is_verified  BOOLEAN NOT NULL DEFAULT FALSE,
	category     TEXT NOT NULL DEFAULT '',
	region       TEXT NOT NULL DEFAULT '',
	segment      TEXT NOT NULL DEFAULT '',
	bio          TEXT NOT NULL DEFAULT '',
	total_likes  BIGINT NOT NULL DEFAULT 0,
	total_videos BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS candidates_campaign_idx ON candidates (campaign_id)`,
	// Rows written before the unique index existed may repeat a username;
	// the earliest one per campaign is kept.
	`DELETE FROM candidates a USING candidates b
WHERE a.campaign_id = b.campaign_id
  AND lower(a.username) = lower(b.username)
  AND (a.created_at, a.id) > (b.created_at, b.id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS candidates_campaign_username_key ON candidates (campaign_id, lower(username))`,
}

// EnsureSchema creates the tables and indexes if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}
