package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/leadflow"
	"github.com/aretw0/leadflow/pkg/domain"
)

// HumanNotice is streamed instead of a bot reply while an agent holds the session.
const HumanNotice = "An agent has joined the conversation and will reply shortly."

// ChatRequest is the body of POST /chat and POST /chat/stream.
type ChatRequest struct {
	SessionID string `json:"sid"`
	Message   string `json:"message"`
}

// SurveyRequest is the body of POST /chat/survey.
type SurveyRequest struct {
	SessionID  string `json:"sid"`
	Industry   string `json:"industry"`
	Budget     string `json:"budget"`
	Experience string `json:"experience"`
}

// PostChat handles the POST /chat request.
func (s *Server) PostChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decode(w, r, &req) {
		return
	}
	sid, ok := sessionParam(w, req.SessionID)
	if !ok {
		return
	}

	reply, err := s.Bot.Chat(r.Context(), sid, req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// PostChatStream handles the POST /chat/stream request.
// The reply is written as plain text in StreamChunkSize pieces, flushed one by one.
func (s *Server) PostChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decode(w, r, &req) {
		return
	}
	sid, ok := sessionParam(w, req.SessionID)
	if !ok {
		return
	}

	reply, err := s.Bot.Chat(r.Context(), sid, req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	text := reply.Reply
	if reply.HumanMode {
		text = HumanNotice
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Story-Complete", strconv.FormatBool(reply.StoryComplete))
	w.Header().Set("X-Human-Mode", strconv.FormatBool(reply.HumanMode))
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for _, chunk := range chunks(text, StreamChunkSize) {
		if _, err := fmt.Fprint(w, chunk); err != nil {
			s.logger.Debug("Stream client gone", "session_id", sid, "err", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		if s.chunkDelay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(s.chunkDelay):
			}
		}
	}
}

// chunks splits text into pieces of at most size bytes without cutting a rune.
func chunks(text string, size int) []string {
	var out []string
	for len(text) > 0 {
		n := size
		if n >= len(text) {
			out = append(out, text)
			break
		}
		for n > 0 && !isRuneStart(text[n]) {
			n--
		}
		if n == 0 {
			n = size
		}
		out = append(out, text[:n])
		text = text[n:]
	}
	return out
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// PostSurvey handles the POST /chat/survey request.
func (s *Server) PostSurvey(w http.ResponseWriter, r *http.Request) {
	var req SurveyRequest
	if !decode(w, r, &req) {
		return
	}
	sid, ok := sessionParam(w, req.SessionID)
	if !ok {
		return
	}

	reply, err := s.Bot.Survey(r.Context(), leadflow.SurveyAnswers{
		SessionID:  sid,
		Industry:   req.Industry,
		Budget:     req.Budget,
		Experience: req.Experience,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// GetMessages handles the GET /chat/{sid}/messages request.
// An optional since query parameter returns only messages with a greater Seq.
func (s *Server) GetMessages(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionParam(w, chi.URLParam(r, "sid"))
	if !ok {
		return
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = v
	}

	msgs, err := s.Bot.Messages(r.Context(), sid)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]domain.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Seq > since {
			out = append(out, m)
		}
	}
	writeJSON(w, http.StatusOK, out)
}
