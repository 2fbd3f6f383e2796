package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/leads"
)

// LeadDetail is a lead together with its transcript.
type LeadDetail struct {
	domain.Lead
	Messages []domain.ChatMessage `json:"messages"`
}

// GetLeads handles the GET /leads request.
func (s *Server) GetLeads(w http.ResponseWriter, r *http.Request) {
	list, err := s.Bot.Leads().List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Lead{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetLead handles the GET /leads/{sid} request.
func (s *Server) GetLead(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionParam(w, chi.URLParam(r, "sid"))
	if !ok {
		return
	}

	lead, err := s.Bot.Leads().Get(r.Context(), sid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	msgs, err := s.Bot.Messages(r.Context(), sid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, LeadDetail{Lead: *lead, Messages: msgs})
}

// DeleteLead handles the DELETE /leads/{sid} request.
// The flow session is reset too, so the visitor starts over.
func (s *Server) DeleteLead(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionParam(w, chi.URLParam(r, "sid"))
	if !ok {
		return
	}

	if _, err := s.Bot.Leads().Get(r.Context(), sid); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Bot.Leads().Delete(r.Context(), sid); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Bot.ResetSession(r.Context(), sid); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetKPIs handles the GET /kpis request.
func (s *Server) GetKPIs(w http.ResponseWriter, r *http.Request) {
	list, err := s.Bot.Leads().List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leads.KPIs(list))
}

// GetFunnel handles the GET /funnel request.
func (s *Server) GetFunnel(w http.ResponseWriter, r *http.Request) {
	list, err := s.Bot.Leads().List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leads.Funnel(list))
}

// GetObjections handles the GET /objections request.
func (s *Server) GetObjections(w http.ResponseWriter, r *http.Request) {
	list, err := s.Bot.Leads().List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	labels := leads.Objections(list)
	if labels == nil {
		labels = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"objections": labels})
}
