package http

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/flow"
)

// maxFlowBytes bounds a PUT /flow body.
const maxFlowBytes = 1 << 20

// ChatSummary is one row of the GET /chats listing.
type ChatSummary struct {
	SessionID   string      `json:"sid"`
	Messages    int         `json:"messages"`
	LastRole    domain.Role `json:"last_role"`
	LastMessage string      `json:"last_message"`
	LastAt      time.Time   `json:"last_at"`
}

// FlowUpdate answers a PUT /flow request.
type FlowUpdate struct {
	Status   string   `json:"status"`
	Start    string   `json:"start,omitempty"`
	Nodes    int      `json:"nodes,omitempty"`
	Issues   []string `json:"issues,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// GetSessions handles the GET /sessions request.
func (s *Server) GetSessions(w http.ResponseWriter, r *http.Request) {
	states, err := s.Bot.Sessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if states == nil {
		states = []*domain.SessionState{}
	}
	writeJSON(w, http.StatusOK, states)
}

// GetChats handles the GET /chats request.
// Rows are ordered by their last message, newest first.
func (s *Server) GetChats(w http.ResponseWriter, r *http.Request) {
	store := s.Bot.Transcript()
	sids, err := store.Sessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]ChatSummary, 0, len(sids))
	for _, sid := range sids {
		msgs, err := store.List(r.Context(), sid)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if len(msgs) == 0 {
			continue
		}
		last := msgs[len(msgs)-1]
		out = append(out, ChatSummary{
			SessionID:   sid,
			Messages:    len(msgs),
			LastRole:    last.Role,
			LastMessage: last.Text,
			LastAt:      last.Timestamp,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastAt.Equal(out[j].LastAt) {
			return out[i].LastAt.After(out[j].LastAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	writeJSON(w, http.StatusOK, out)
}

// GetFlow handles the GET /flow request with the live definition.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	data, err := flow.Marshal(s.Bot.Flow())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// PutFlow handles the PUT /flow request.
// The body is a JSON or YAML flow document. It replaces the live flow only when
// validation reports no errors.
func (s *Server) PutFlow(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFlowBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "flow document too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := flow.Parse(body)
	if err != nil {
		s.logger.Warn("Flow upload rejected", "err", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.flowPatch != nil {
		def = s.flowPatch(def)
	}

	var errs, warnings []string
	for _, issue := range flow.Validate(def, s.Bot.KnownAction) {
		if issue.Severity == flow.SeverityError {
			errs = append(errs, issue.String())
		} else {
			warnings = append(warnings, issue.String())
		}
	}
	if len(errs) > 0 {
		s.logger.Warn("Flow upload rejected", "issues", len(errs))
		writeJSON(w, http.StatusUnprocessableEntity, FlowUpdate{Status: "invalid", Issues: errs, Warnings: warnings})
		return
	}

	if err := s.Bot.SetFlow(def); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FlowUpdate{
		Status:   "updated",
		Start:    def.Start,
		Nodes:    len(def.Nodes),
		Warnings: warnings,
	})
}
