// Package scout defines the creator-scouting domain shared across subsystems:
// scrape jobs, stored profile history, campaign candidates, and the pure
// helpers (tiering, contact filling, engagement math, de-duplication) that the
// worker, API and CLI build on.
package scout
