package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/leadflow"
	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/events"
	"github.com/aretw0/leadflow/pkg/input"
	"github.com/aretw0/leadflow/pkg/ports"
)

// Bot is the chat service the transport exposes.
type Bot interface {
	Chat(ctx context.Context, sid, text string) (leadflow.Reply, error)
	Survey(ctx context.Context, answers leadflow.SurveyAnswers) (leadflow.Reply, error)
	Messages(ctx context.Context, sid string) ([]domain.ChatMessage, error)
	StaffMessage(ctx context.Context, sid, agentID, text string) (domain.ChatMessage, error)
	Claim(ctx context.Context, sid, agentID string) (domain.TakeoverClaim, error)
	Release(ctx context.Context, sid, agentID string) error
	ResetSession(ctx context.Context, sid string) error
	Sessions(ctx context.Context) ([]*domain.SessionState, error)
	Flow() *domain.Definition
	SetFlow(def *domain.Definition) error
	KnownAction(name string) bool
	Leads() ports.LeadRepository
	Transcript() ports.TranscriptStore
	Events() *events.Bus
}

var _ Bot = (*leadflow.Bot)(nil)

// DefaultKeepAlive is the SSE heartbeat interval.
const DefaultKeepAlive = 15 * time.Second

// StreamChunkSize is how many bytes of a reply each streamed write carries.
const StreamChunkSize = 24

// AgentHeader carries the agent identity on agent routes.
const AgentHeader = "X-Agent-Id"

// Server holds the HTTP handlers.
type Server struct {
	Bot Bot

	adminToken string
	metrics    http.Handler
	keepAlive  time.Duration
	chunkDelay time.Duration
	flowPatch  func(*domain.Definition) *domain.Definition
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithAdminToken protects agent, lead and analytics routes with a bearer token.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = strings.TrimSpace(token)
	}
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithKeepAlive sets the SSE heartbeat interval.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

// WithChunkDelay paces streamed replies so clients can animate typing.
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) {
		s.chunkDelay = d
	}
}

// WithFlowPatch rewrites every flow uploaded through PUT /flow before it is
// validated, so uploads get the same treatment as the flow loaded at startup.
func WithFlowPatch(patch func(*domain.Definition) *domain.Definition) Option {
	return func(s *Server) {
		s.flowPatch = patch
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates the HTTP handler for bot.
func NewHandler(bot Bot, opts ...Option) http.Handler {
	s := &Server{
		Bot:       bot,
		keepAlive: DefaultKeepAlive,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", s.PostChat)
		r.Post("/stream", s.PostChatStream)
		r.Post("/survey", s.PostSurvey)
		r.Get("/{sid}/messages", s.GetMessages)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)

		r.Route("/agent", func(r chi.Router) {
			r.Post("/claim", s.PostClaim)
			r.Post("/release", s.PostRelease)
			r.Post("/message", s.PostAgentMessage)
			r.Post("/reset", s.PostReset)
			r.Get("/stream", s.GetAgentStream)
		})

		r.Get("/leads", s.GetLeads)
		r.Get("/leads/{sid}", s.GetLead)
		r.Delete("/leads/{sid}", s.DeleteLead)

		r.Get("/kpis", s.GetKPIs)
		r.Get("/funnel", s.GetFunnel)
		r.Get("/objections", s.GetObjections)

		r.Get("/sessions", s.GetSessions)
		r.Get("/chats", s.GetChats)
		r.Get("/flow", s.GetFlow)
		r.Put("/flow", s.PutFlow)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+AgentHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type identityKey struct{}

// Identity is the authenticated caller of an admin route.
type Identity struct {
	AgentID string
	Admin   bool
}

// IdentityFrom returns the caller attached by the admin middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// requireAdmin checks the bearer token when one is configured and attaches the
// caller identity to the request context.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{AgentID: strings.TrimSpace(r.Header.Get(AgentHeader))}
		if s.adminToken != "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) != s.adminToken {
				writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
			id.Admin = true
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

// Health is the GET /health payload.
type Health struct {
	Status     string                  `json:"status"`
	Transcript *domain.TranscriptStats `json:"transcript,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// GetHealth handles the GET /health request.
// A transcript store that cannot report its stats degrades the check.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Bot.Transcript().Stats(r.Context())
	if err != nil {
		s.logger.Error("Health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, Health{Status: "degraded", Error: "transcript store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, Health{Status: "ok", Transcript: &stats})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "leadflow-http",
		"version": strings.TrimSpace(leadflow.Version),
	})
}

// -- Helpers --

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidMessage),
		errors.Is(err, input.ErrTooLarge),
		errors.Is(err, input.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrLeadNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionClaimed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err to the client; server errors are logged and hidden.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, status, "internal error")
		return
	}
	s.logger.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// sessionParam validates the session id at the boundary.
func sessionParam(w http.ResponseWriter, sid string) (string, bool) {
	sid = strings.TrimSpace(sid)
	if !leadflow.ValidSessionID(sid) {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return "", false
	}
	return sid, true
}
