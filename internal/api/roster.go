package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/kolscout/internal/contact"
	"github.com/JakeFAU/kolscout/internal/scout"
)

// profileView adds the derived WhatsApp link to a stored profile.
type profileView struct {
	scout.Profile
	WhatsAppURL string `json:"whatsapp_url,omitempty"`
}

type updateContactRequest struct {
	Email   string `json:"email" validate:"omitempty,email"`
	Contact string `json:"contact"`
}

type scanRequest struct {
	Platform scout.Platform `json:"platform" validate:"omitempty,oneof=tiktok instagram"`
}

type createCampaignRequest struct {
	BrandName   string               `json:"brand_name" validate:"required"`
	Description string               `json:"description"`
	Status      scout.CampaignStatus `json:"status" validate:"omitempty,oneof=Draft Active Completed"`
}

type moveRequest struct {
	ProfileIDs []string `json:"profile_ids" validate:"required,min=1,dive,required"`
}

type dedupeRequest struct {
	Scope  string `json:"scope" validate:"omitempty,oneof=campaign global"`
	DryRun bool   `json:"dry_run"`
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	platform := scout.Platform(strings.ToLower(q.Get("platform")))
	if platform != "" && !platform.Valid() {
		writeError(w, http.StatusBadRequest, "unknown platform "+string(platform))
		return
	}
	profiles, err := s.deps.Profiles.ListProfiles(r.Context(), scout.ProfileFilter{
		Platform: platform,
		JobID:    q.Get("job_id"),
		Search:   strings.TrimSpace(q.Get("q")),
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	views := make([]profileView, 0, len(profiles))
	for _, p := range profiles {
		v := profileView{Profile: p}
		if link, ok := contact.WhatsAppLink(p.Phone); ok {
			v.WhatsAppURL = link
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": views, "count": len(views)})
}

// clearProfiles wipes search history. platform=all clears every platform.
func (s *Server) clearProfiles(w http.ResponseWriter, r *http.Request) {
	raw := strings.ToLower(r.URL.Query().Get("platform"))
	var platform scout.Platform
	switch {
	case raw == "all":
	case scout.Platform(raw).Valid():
		platform = scout.Platform(raw)
	default:
		writeError(w, http.StatusBadRequest, "platform must be tiktok, instagram or all")
		return
	}
	deleted, err := s.deps.Profiles.ClearProfiles(r.Context(), platform)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// updateProfileContact applies a manual contact edit. Phone input goes through
// the bio extractor so stored numbers stay canonical.
func (s *Server) updateProfileContact(w http.ResponseWriter, r *http.Request) {
	var req updateContactRequest
	if !s.decode(w, r, &req) {
		return
	}
	update := scout.ContactUpdate{Email: strings.ToLower(strings.TrimSpace(req.Email))}
	if strings.TrimSpace(req.Contact) != "" {
		update.Phone = contact.Extract(req.Contact).Phone
		if update.Phone == "" {
			writeError(w, http.StatusBadRequest, "contact is not a recognizable phone number")
			return
		}
	}
	if update.Empty() {
		writeError(w, http.StatusBadRequest, "email or contact is required")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.deps.Profiles.UpdateContact(r.Context(), id, update); err != nil {
		s.writeErr(w, err)
		return
	}
	profile, err := s.deps.Profiles.GetProfile(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) scanContacts(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.deps.Roster.ScanContacts(r.Context(), req.Platform)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if !s.decode(w, r, &req) {
		return
	}
	campaign, err := s.deps.Roster.CreateCampaign(r.Context(), req.BrandName, req.Description, req.Status)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

// listCampaigns accepts a comma separated status filter.
func (s *Server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	var statuses []scout.CampaignStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := scout.CampaignStatus(strings.TrimSpace(part))
			if !st.Valid() {
				writeError(w, http.StatusBadRequest, "unknown campaign status "+string(st))
				return
			}
			statuses = append(statuses, st)
		}
	}
	campaigns, err := s.deps.Campaigns.ListCampaigns(r.Context(), statuses...)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns, "count": len(campaigns)})
}

func (s *Server) moveToCampaign(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.deps.Roster.MoveToCampaign(r.Context(), chi.URLParam(r, "campaign_id"), req.ProfileIDs)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listCandidates(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaign_id")
	if _, err := s.deps.Campaigns.GetCampaign(r.Context(), campaignID); err != nil {
		s.writeErr(w, err)
		return
	}
	candidates, err := s.deps.Candidates.ListCandidates(r.Context(), campaignID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates, "count": len(candidates)})
}

func (s *Server) dedupeCandidates(w http.ResponseWriter, r *http.Request) {
	var req dedupeRequest
	if !s.decode(w, r, &req) {
		return
	}
	raw := req.Scope
	if raw == "" {
		raw = s.cfg.Dedupe.Scope
	}
	scope, ok := scout.ParseDedupeScope(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown dedupe scope "+raw)
		return
	}
	res, err := s.deps.Roster.Dedupe(r.Context(), scope, req.DryRun)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
