package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/leadflow/pkg/events"
)

// AgentRequest is the body of the /agent routes.
type AgentRequest struct {
	SessionID string `json:"sid"`
	Text      string `json:"text,omitempty"`
}

// agentID returns the caller identity set by requireAdmin.
func agentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, _ := IdentityFrom(r.Context())
	if id.AgentID == "" {
		writeError(w, http.StatusBadRequest, "missing "+AgentHeader+" header")
		return "", false
	}
	return id.AgentID, true
}

// PostClaim handles the POST /agent/claim request.
func (s *Server) PostClaim(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentID(w, r)
	if !ok {
		return
	}
	var req AgentRequest
	if !decode(w, r, &req) {
		return
	}
	sid, ok := sessionParam(w, req.SessionID)
	if !ok {
		return
	}

	claim, err := s.Bot.Claim(r.Context(), sid, agent)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// PostRelease handles the POST /agent/release request.
func (s *Server) PostRelease(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentID(w, r)
	if !ok {
		return
	}
	var req AgentRequest
	if !decode(w, r, &req) {
		return
	}
	sid, ok := sessionParam(w, req.SessionID)
	if !ok {
		return
	}

	if err := s.Bot.Release(r.Context(), sid, agent); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

// PostAgentMessage handles the POST /agent/message request.
func (s *Server) PostAgentMessage(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentID(w, r)
	if !ok {
		return
	}
	var req AgentRequest
	if !decode(w, r, &req) {
		return
	}
	sid, ok := sessionParam(w, req.SessionID)
	if !ok {
		return
	}

	msg, err := s.Bot.StaffMessage(r.Context(), sid, agent, req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// PostReset handles the POST /agent/reset request.
func (s *Server) PostReset(w http.ResponseWriter, r *http.Request) {
	var req AgentRequest
	if !decode(w, r, &req) {
		return
	}
	sid, ok := sessionParam(w, req.SessionID)
	if !ok {
		return
	}
	if err := s.Bot.ResetSession(r.Context(), sid); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// GetAgentStream handles the GET /agent/stream request.
// Events of one session (or every session when sid is omitted) are pushed as SSE.
func (s *Server) GetAgentStream(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")
	if sid == "" {
		sid = events.AllSessions
	} else if _, ok := sessionParam(w, sid); !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, cancel := s.Bot.Events().Subscribe(sid)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {\"ts\":%d}\n\n", time.Now().Unix())
			flusher.Flush()
		case ev, open := <-sub:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("Event encode failed", "type", ev.Type, "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
