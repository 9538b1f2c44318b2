// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz / readyz for Kubernetes health checks.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/extract for one-off bio extraction.
//   - POST /v1/jobs/... for scrape job submission/cancellation.
//   - /v1/profiles, /v1/campaigns and /v1/candidates for curation.
package api
