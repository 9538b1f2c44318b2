package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/kolscout/internal/scout"
)

type searchRequest struct {
	Queries []string          `json:"queries" validate:"required,min=1,dive,required"`
	Limit   int               `json:"limit" validate:"gte=0"`
	Tags    map[string]string `json:"tags"`
}

type usernamesRequest struct {
	Usernames []string          `json:"usernames" validate:"required,min=1,dive,required"`
	Limit     int               `json:"limit" validate:"gte=0"`
	Tags      map[string]string `json:"tags"`
}

// analyzeRequest has no limit: the analyzer always covers every username.
type analyzeRequest struct {
	Usernames []string          `json:"usernames" validate:"required,min=1,dive,required"`
	Tags      map[string]string `json:"tags"`
}

type trendRequest struct {
	Name string `json:"name" validate:"required"`
}

type jobResponse struct {
	JobID  string          `json:"job_id"`
	Status scout.JobStatus `json:"status"`
}

func (s *Server) submitTikTokSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.submit(w, r, scout.JobParameters{
		Kind:    scout.JobKindTikTokSearch,
		Queries: req.Queries,
		Limit:   req.Limit,
		Tags:    req.Tags,
	})
}

func (s *Server) submitInstagramExpand(w http.ResponseWriter, r *http.Request) {
	var req usernamesRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.submit(w, r, scout.JobParameters{
		Kind:      scout.JobKindInstagramExpand,
		Usernames: req.Usernames,
		Limit:     req.Limit,
		Tags:      req.Tags,
	})
}

func (s *Server) submitTikTokAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.submit(w, r, scout.JobParameters{
		Kind:      scout.JobKindTikTokAnalyze,
		Usernames: req.Usernames,
		Tags:      req.Tags,
	})
}

// submitTrend runs a search preset configured under search_trends.
func (s *Server) submitTrend(w http.ResponseWriter, r *http.Request) {
	var req trendRequest
	if !s.decode(w, r, &req) {
		return
	}
	params, ok := s.cfg.SearchTrends[strings.ToLower(strings.TrimSpace(req.Name))]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown trend "+req.Name)
		return
	}
	if params.Kind == "" {
		params.Kind = scout.JobKindTikTokSearch
	}
	tags := make(map[string]string, len(params.Tags)+1)
	for k, v := range params.Tags {
		tags[k] = v
	}
	tags["trend"] = req.Name
	params.Tags = tags
	s.submit(w, r, params)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, params scout.JobParameters) {
	job, err := s.deps.Dispatcher.Submit(r.Context(), params)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, jobResponse{JobID: job.ID, Status: job.Status})
}

func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.GetJob(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Dispatcher.Cancel(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
