package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/kolscout/internal/metrics"
	"github.com/JakeFAU/kolscout/internal/scout"
)

// Config controls the resolver.
type Config struct {
	Concurrency int
	Headers     http.Header
}

// Resolver implements scout.BioResolver.
type Resolver struct {
	cfg      Config
	static   Fetcher
	headless Fetcher
	detector Detector
	limiter  Limiter
	logger   *zap.Logger
}

var _ scout.BioResolver = (*Resolver)(nil)

// NewResolver builds a Resolver. headless, detector and limiter may be nil.
func NewResolver(
	cfg Config,
	static Fetcher,
	headless Fetcher,
	detector Detector,
	limiter Limiter,
	logger *zap.Logger,
) *Resolver {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cfg:      cfg,
		static:   static,
		headless: headless,
		detector: detector,
		limiter:  limiter,
		logger:   logger.Named("enrich"),
	}
}

// ResolveBios returns a copy of items where empty bios were looked up from
// the profile page. Lookup failures are logged and leave the bio empty.
func (r *Resolver) ResolveBios(ctx context.Context, items []scout.SourceItem) []scout.SourceItem {
	out := make([]scout.SourceItem, len(items))
	copy(out, items)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i := range out {
		if out[i].Bio != "" || out[i].Username == "" {
			continue
		}
		g.Go(func() error {
			url := out[i].ProfileURL
			if url == "" {
				url = scout.ProfileURL(out[i].Platform, out[i].Username)
			}
			bio, err := r.fetchBio(gctx, url)
			if err != nil {
				r.logger.Warn("bio lookup failed",
					zap.String("username", out[i].Username),
					zap.String("url", url),
					zap.Error(err),
				)
				return nil
			}
			out[i].Bio = bio
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Resolver) fetchBio(ctx context.Context, url string) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, url); err != nil {
			return "", err
		}
	}
	req := FetchRequest{URL: url, Headers: r.cfg.Headers}
	resp, err := r.static.Fetch(ctx, req)
	if err != nil {
		metrics.ObserveEnrichFetch(url, "static", "error")
		return "", fmt.Errorf("static fetch: %w", err)
	}
	metrics.ObserveEnrichFetch(url, "static", http.StatusText(resp.StatusCode))

	if r.headless != nil && r.detector != nil && r.detector.ShouldPromote(resp) {
		r.logger.Debug("promoting to headless", zap.String("url", url))
		rendered, err := r.headless.Fetch(ctx, req)
		if err != nil {
			metrics.ObserveEnrichFetch(url, "headless", "error")
			return "", fmt.Errorf("headless: %w", err)
		}
		metrics.ObserveEnrichFetch(url, "headless", http.StatusText(rendered.StatusCode))
		resp = rendered
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	bio, err := ParseBio(resp.Body)
	if err != nil {
		return "", err
	}
	if bio == "" {
		return "", errors.New("no bio on page")
	}
	return bio, nil
}
