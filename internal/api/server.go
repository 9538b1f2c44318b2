package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/config"
	"github.com/JakeFAU/kolscout/internal/metrics"
	"github.com/JakeFAU/kolscout/internal/scout"
)

// JobService submits and cancels scrape jobs.
type JobService interface {
	Submit(ctx context.Context, params scout.JobParameters) (scout.Job, error)
	Cancel(ctx context.Context, jobID string) (scout.Job, error)
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Jobs       scout.JobStore
	Dispatcher JobService
	Profiles   scout.ProfileStore
	Candidates scout.CandidateStore
	Campaigns  scout.CampaignStore
	Roster     *scout.Roster
	// Ready reports downstream readiness; nil means always ready.
	Ready func(ctx context.Context) error
}

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	router   chi.Router
	deps     Deps
	cfg      config.Config
	validate *validator.Validate
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deps:     deps,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("api"),
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/extract", s.extract)
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/tiktok-search", s.submitTikTokSearch)
			r.Post("/instagram-expand", s.submitInstagramExpand)
			r.Post("/tiktok-analyze", s.submitTikTokAnalyze)
			r.Post("/trend", s.submitTrend)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/status", s.getJobStatus)
				r.Post("/cancel", s.cancelJob)
			})
		})
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.listProfiles)
			r.Delete("/", s.clearProfiles)
			r.Post("/scan-contacts", s.scanContacts)
			r.Patch("/{id}", s.updateProfileContact)
		})
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.createCampaign)
			r.Get("/", s.listCampaigns)
			r.Route("/{campaign_id}/candidates", func(r chi.Router) {
				r.Post("/", s.moveToCampaign)
				r.Get("/", s.listCandidates)
			})
		})
		r.Post("/candidates/dedupe", s.dedupeCandidates)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
