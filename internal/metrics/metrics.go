// Package metrics exposes Prometheus collectors for the scout service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scoutJobsTotal               *prometheus.CounterVec
	scoutProfilesTotal           *prometheus.CounterVec
	scoutContactsTotal           *prometheus.CounterVec
	scoutActiveWorkers           prometheus.Gauge
	apifyRunDurationSeconds      *prometheus.HistogramVec
	enrichFetchesTotal           *prometheus.CounterVec
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec
	scoutRateLimitDelaysSeconds  *prometheus.HistogramVec
	scoutSourceCacheLookupsTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scoutJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_jobs_total",
				Help: "Total number of scrape jobs finished, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		scoutProfilesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_profiles_ingested_total",
				Help: "Total number of profiles stored, labeled by platform.",
			},
			[]string{"platform"},
		)

		scoutContactsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_contacts_found_total",
				Help: "Total number of contacts extracted, labeled by field.",
			},
			[]string{"field"},
		)

		scoutActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scout_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		apifyRunDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_apify_run_duration_seconds",
				Help:    "Histogram of Apify actor run latencies, labeled by actor and status.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"actor", "status"},
		)

		enrichFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_enrich_fetches_total",
				Help: "Total number of profile page fetches for bio enrichment, labeled by site, mode and status.",
			},
			[]string{"site", "mode", "status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		scoutRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		scoutSourceCacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_source_cache_lookups_total",
				Help: "Total number of source cache lookups, labeled by result.",
			},
			[]string{"result"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter.
func ObserveJob(kind, status string) {
	scoutJobsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveProfiles adds stored profiles for a platform.
func ObserveProfiles(platform string, n int) {
	if n > 0 {
		scoutProfilesTotal.WithLabelValues(platform).Add(float64(n))
	}
}

// ObserveContacts adds extracted contacts for a field ("email" or "phone").
func ObserveContacts(field string, n int) {
	if n > 0 {
		scoutContactsTotal.WithLabelValues(field).Add(float64(n))
	}
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	scoutActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	scoutActiveWorkers.Dec()
}

// ObserveApifyRun records the latency of one actor run.
func ObserveApifyRun(actor, status string, duration time.Duration) {
	apifyRunDurationSeconds.WithLabelValues(actor, status).Observe(duration.Seconds())
}

// ObserveEnrichFetch counts a profile page fetch.
func ObserveEnrichFetch(site, mode, status string) {
	enrichFetchesTotal.WithLabelValues(SanitizeSite(site), mode, status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	scoutRateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveCacheLookup counts a source cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	scoutSourceCacheLookupsTotal.WithLabelValues(result).Inc()
}
