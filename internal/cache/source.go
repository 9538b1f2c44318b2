// Package cache memoizes actor runs so repeated searches do not spend Apify
// credits.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/metrics"
	"github.com/JakeFAU/kolscout/internal/scout"
)

// Store is a byte cache with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// KeyFunc derives a cache key from its parts.
type KeyFunc func(parts ...string) string

// Source decorates a scout.ProfileSource with a Store. Cache failures are
// logged and fall through to the wrapped source.
type Source struct {
	next   scout.ProfileSource
	store  Store
	key    KeyFunc
	ttl    time.Duration
	logger *zap.Logger
}

var _ scout.ProfileSource = (*Source)(nil)

// NewSource wraps next.
func NewSource(next scout.ProfileSource, store Store, key KeyFunc, ttl time.Duration, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{next: next, store: store, key: key, ttl: ttl, logger: logger.Named("cache")}
}

type entry struct {
	RunID   string                      `json:"run_id"`
	Items   []scout.SourceItem          `json:"items,omitempty"`
	Results map[string]scout.Engagement `json:"results,omitempty"`
	Raw     json.RawMessage             `json:"raw,omitempty"`
}

// SearchTikTok implements scout.ProfileSource.
func (s *Source) SearchTikTok(ctx context.Context, query string, limit int) (scout.SourceBatch, error) {
	key := s.key(string(scout.JobKindTikTokSearch), strings.ToLower(strings.TrimSpace(query)), strconv.Itoa(limit))
	if e, ok := s.lookup(ctx, key); ok {
		return scout.SourceBatch{RunID: e.RunID, Items: e.Items, Raw: e.Raw}, nil
	}
	batch, err := s.next.SearchTikTok(ctx, query, limit)
	if err != nil {
		return batch, err
	}
	s.save(ctx, key, entry{RunID: batch.RunID, Items: batch.Items, Raw: batch.Raw})
	return batch, nil
}

// ExpandInstagram implements scout.ProfileSource.
func (s *Source) ExpandInstagram(ctx context.Context, usernames []string, limit int) (scout.SourceBatch, error) {
	parts := append([]string{string(scout.JobKindInstagramExpand), strconv.Itoa(limit)}, normalized(usernames)...)
	key := s.key(parts...)
	if e, ok := s.lookup(ctx, key); ok {
		return scout.SourceBatch{RunID: e.RunID, Items: e.Items, Raw: e.Raw}, nil
	}
	batch, err := s.next.ExpandInstagram(ctx, usernames, limit)
	if err != nil {
		return batch, err
	}
	s.save(ctx, key, entry{RunID: batch.RunID, Items: batch.Items, Raw: batch.Raw})
	return batch, nil
}

// AnalyzeTikTok is never cached: engagement is expected to change between runs.
func (s *Source) AnalyzeTikTok(ctx context.Context, usernames []string) (scout.EngagementBatch, error) {
	return s.next.AnalyzeTikTok(ctx, usernames)
}

func (s *Source) lookup(ctx context.Context, key string) (entry, bool) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return entry{}, false
	}
	metrics.ObserveCacheLookup(ok)
	if !ok {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return entry{}, false
	}
	s.logger.Debug("cache hit", zap.String("key", key), zap.String("run_id", e.RunID))
	return e, true
}

func (s *Source) save(ctx context.Context, key string, e entry) {
	if len(e.Raw) > 0 && !json.Valid(e.Raw) {
		e.Raw = nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.store.Set(ctx, key, payload, s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(fmt.Errorf("store: %w", err)))
	}
}

func normalized(usernames []string) []string {
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		u = strings.ToLower(strings.TrimSpace(u))
		if u != "" {
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out
}
