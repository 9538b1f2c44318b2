package api

import (
	"net/http"

	"github.com/JakeFAU/kolscout/internal/contact"
)

type extractRequest struct {
	Bio *string `json:"bio"`
}

type extractResponse struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	WhatsAppURL string `json:"whatsapp_url,omitempty"`
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) {
		return
	}
	info := contact.ExtractPtr(req.Bio)
	resp := extractResponse{Email: info.Email, Phone: info.Phone}
	if link, ok := contact.WhatsAppLink(info.Phone); ok {
		resp.WhatsAppURL = link
	}
	writeJSON(w, http.StatusOK, resp)
}
