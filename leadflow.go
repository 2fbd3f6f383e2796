package leadflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/internal/runtime"
	"github.com/aretw0/leadflow/pkg/adapters/memory"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/events"
	"github.com/aretw0/leadflow/pkg/input"
	"github.com/aretw0/leadflow/pkg/observability"
	"github.com/aretw0/leadflow/pkg/ports"
	"github.com/aretw0/leadflow/pkg/scoring"
	"github.com/aretw0/leadflow/pkg/session"
)

// DefaultTakeoverTTL is how long a human agent keeps a session without activity.
const DefaultTakeoverTTL = 15 * time.Minute

// MinSessionIDLength rejects ids too short to be generated by a client.
const MinSessionIDLength = 3

// Reply is what a visitor sees after sending a message.
type Reply struct {
	domain.RenderPayload
	// HumanMode is set while a human agent owns the session; the bot stays silent.
	HumanMode bool `json:"humanMode,omitempty"`
}

// Bot is the high-level entry point: it runs the flow engine for each visitor
// message and keeps the transcript, lead record and takeover state around it.
type Bot struct {
	engine     *runtime.Engine
	fit        *runtime.FitHandler
	sessions   *session.Manager
	leads      ports.LeadRepository
	transcript ports.TranscriptStore
	takeover   ports.TakeoverGate
	bus        *events.Bus
	metrics    *observability.Metrics
	sanitizer  input.Sanitizer
	logger     *slog.Logger

	takeoverTTL time.Duration
	now         func() time.Time
}

type config struct {
	flow          *domain.Definition
	store         ports.SessionStore
	locker        ports.DistributedLocker
	leads         ports.LeadRepository
	transcript    ports.TranscriptStore
	takeover      ports.TakeoverGate
	classifier    ports.Classifier
	scorer        *scoring.Scorer
	bus           *events.Bus
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	rng           *rand.Rand
	actionTimeout time.Duration
	takeoverTTL   time.Duration
	metrics       *observability.Metrics
	maxInput      int
	actions       []namedAction
}

type namedAction struct {
	handler ports.ActionHandler
	names   []string
}

// Option configures the Bot.
type Option func(*config)

// WithFlow sets the compiled flow definition. Required.
func WithFlow(def *domain.Definition) Option {
	return func(c *config) {
		c.flow = def
	}
}

// WithSessionStore sets where flow positions are kept (default: in memory).
func WithSessionStore(store ports.SessionStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithLocker serializes turns of one session across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *config) {
		c.locker = locker
	}
}

// WithLeadRepository sets the lead store (default: in memory).
func WithLeadRepository(repo ports.LeadRepository) Option {
	return func(c *config) {
		c.leads = repo
	}
}

// WithTranscriptStore sets the chat history store (default: in memory).
func WithTranscriptStore(store ports.TranscriptStore) Option {
	return func(c *config) {
		c.transcript = store
	}
}

// WithTakeoverGate sets the human takeover gate (default: in memory).
func WithTakeoverGate(gate ports.TakeoverGate) Option {
	return func(c *config) {
		c.takeover = gate
	}
}

// WithTakeoverTTL sets how long a claim lasts.
func WithTakeoverTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.takeoverTTL = ttl
		}
	}
}

// WithClassifier enables LLM scoring of leads that collected no signals.
func WithClassifier(classifier ports.Classifier) Option {
	return func(c *config) {
		c.classifier = classifier
	}
}

// WithScorer replaces the default rule scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(c *config) {
		c.scorer = s
	}
}

// WithEventBus publishes chat activity on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(c *config) {
		c.bus = bus
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithRand seeds prompt variant selection, mostly for tests.
func WithRand(r *rand.Rand) Option {
	return func(c *config) {
		c.rng = r
	}
}

// WithActionTimeout bounds each action handler run, LLM calls included.
func WithActionTimeout(d time.Duration) Option {
	return func(c *config) {
		c.actionTimeout = d
	}
}

// WithMetrics records node, action and turn metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithMaxInputSize bounds visitor and staff messages, in bytes.
func WithMaxInputSize(n int) Option {
	return func(c *config) {
		c.maxInput = n
	}
}

// WithActionHandler registers a custom action handler under names. Names
// registered later win, so the built-in scoring actions can be replaced.
func WithActionHandler(h ports.ActionHandler, names ...string) Option {
	return func(c *config) {
		c.actions = append(c.actions, namedAction{handler: h, names: names})
	}
}

// New creates a Bot. Every collaborator not given defaults to an in-memory one.
func New(opts ...Option) (*Bot, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.flow == nil {
		return nil, fmt.Errorf("%w: no flow given", domain.ErrInvalidFlow)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.store == nil {
		c.store = memory.NewStore()
	}
	if c.leads == nil {
		c.leads = memory.NewLeads()
	}
	if c.transcript == nil {
		c.transcript = memory.NewTranscript()
	}
	if c.takeoverTTL == 0 {
		c.takeoverTTL = DefaultTakeoverTTL
	}
	if c.takeover == nil {
		c.takeover = memory.NewTakeover(c.takeoverTTL)
	}
	if c.bus == nil {
		c.bus = events.NewBus(events.WithLogger(c.logger))
	}
	if c.scorer == nil {
		c.scorer = scoring.New()
	}

	b := &Bot{
		leads:       c.leads,
		transcript:  c.transcript,
		takeover:    c.takeover,
		bus:         c.bus,
		metrics:     c.metrics,
		sanitizer:   input.Sanitizer{MaxSize: c.maxInput},
		logger:      c.logger,
		takeoverTTL: c.takeoverTTL,
		now:         time.Now,
	}

	sessionOpts := []session.Option{session.WithLogger(c.logger)}
	if c.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(c.locker))
	}
	b.sessions = session.NewManager(c.store, sessionOpts...)

	hooks := observability.Chain(c.hooks, observability.Hooks(c.logger, c.metrics), b.scoredHooks())
	fit := runtime.NewFitHandler(c.scorer, c.classifier, c.logger)
	b.fit = fit
	engineOpts := []runtime.EngineOption{
		runtime.WithLogger(c.logger),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithActionHandler(fit, domain.ActionComputeFit, domain.ActionDeepseekScore),
		runtime.WithActionTimeout(c.actionTimeout),
	}
	for _, a := range c.actions {
		engineOpts = append(engineOpts, runtime.WithActionHandler(a.handler, a.names...))
	}
	if c.rng != nil {
		engineOpts = append(engineOpts, runtime.WithPicker(c.rng.IntN))
	}
	b.engine = runtime.NewEngine(c.flow, b.sessions, c.leads, engineOpts...)
	return b, nil
}

// scoredHooks announces finished scoring actions to dashboard listeners.
func (b *Bot) scoredHooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnActionDone: func(ctx context.Context, e *domain.ActionEvent) {
			if e.Action != domain.ActionComputeFit && e.Action != domain.ActionDeepseekScore {
				return
			}
			b.bus.Publish(events.Event{
				Type:      events.LeadScored,
				SessionID: e.SessionID,
				Payload:   map[string]any{"node_id": e.NodeID, "failed": e.IsError},
			})
		},
	}
}

// ValidSessionID reports whether sid is acceptable as a session key.
func ValidSessionID(sid string) bool {
	sid = strings.TrimSpace(sid)
	return len(sid) >= MinSessionIDLength && !strings.ContainsAny(sid, " \t\r\n")
}

func checkSessionID(sid string) error {
	if !ValidSessionID(sid) {
		return fmt.Errorf("%w: bad session id %q", domain.ErrInvalidMessage, sid)
	}
	return nil
}

// Chat handles one visitor message. An empty text on a new session starts the
// conversation. While a human agent holds the session the bot does not answer.
func (b *Bot) Chat(ctx context.Context, sid, text string) (Reply, error) {
	if err := checkSessionID(sid); err != nil {
		return Reply{}, err
	}
	clean, err := b.sanitizer.Clean(text)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", domain.ErrInvalidMessage, err)
	}

	if clean != "" {
		if err := b.record(ctx, sid, domain.RoleUser, clean); err != nil {
			return Reply{}, err
		}
	}

	now := b.now()
	if _, err := b.leads.Upsert(ctx, sid, domain.LeadUpdate{LastSeen: &now}); err != nil {
		b.metrics.ObserveTurn(observability.OutcomeError)
		return Reply{}, fmt.Errorf("failed to touch lead %s: %w", sid, err)
	}

	if _, active, err := b.takeover.Active(ctx, sid); err != nil {
		b.logger.Warn("Takeover lookup failed, answering as bot", "session_id", sid, "err", err)
	} else if active {
		b.metrics.ObserveTurn(observability.OutcomeHuman)
		return Reply{
			RenderPayload: domain.RenderPayload{
				UI:       domain.UI{OpenInput: true},
				ChatMode: domain.ModeOpen,
			},
			HumanMode: true,
		}, nil
	}

	payload, err := b.engine.Step(ctx, sid, clean)
	if err != nil {
		b.metrics.ObserveTurn(observability.OutcomeError)
		return Reply{}, err
	}
	b.metrics.ObserveTurn(observability.OutcomeBot)

	if payload.Reply != "" {
		if err := b.record(ctx, sid, domain.RoleAssistant, payload.Reply); err != nil {
			return Reply{}, err
		}
	}
	return Reply{RenderPayload: payload}, nil
}

// record appends a transcript entry and announces it.
func (b *Bot) record(ctx context.Context, sid string, role domain.Role, text string) error {
	msg, err := b.transcript.Append(ctx, domain.ChatMessage{SessionID: sid, Role: role, Text: text})
	if err != nil {
		return fmt.Errorf("failed to append %s message: %w", role, err)
	}
	b.bus.Publish(events.Event{Type: events.MessageCreated, SessionID: sid, Payload: msg})
	return nil
}

// Messages returns the session's transcript in order.
func (b *Bot) Messages(ctx context.Context, sid string) ([]domain.ChatMessage, error) {
	if err := checkSessionID(sid); err != nil {
		return nil, err
	}
	return b.transcript.List(ctx, sid)
}

// StaffMessage posts a human agent's message. Posting claims the session for
// the agent, or refreshes an existing claim.
func (b *Bot) StaffMessage(ctx context.Context, sid, agentID, text string) (domain.ChatMessage, error) {
	if err := checkSessionID(sid); err != nil {
		return domain.ChatMessage{}, err
	}
	if strings.TrimSpace(agentID) == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: missing agent id", domain.ErrInvalidMessage)
	}
	clean, err := b.sanitizer.Clean(text)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %w", domain.ErrInvalidMessage, err)
	}

	if _, err := b.Claim(ctx, sid, agentID); err != nil {
		return domain.ChatMessage{}, err
	}
	msg, err := b.transcript.Append(ctx, domain.ChatMessage{SessionID: sid, Role: domain.RoleStaff, Text: clean})
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("failed to append staff message: %w", err)
	}
	b.bus.Publish(events.Event{Type: events.MessageCreated, SessionID: sid, Payload: msg})
	return msg, nil
}

// Claim pauses the bot for sid and hands the session to agentID.
func (b *Bot) Claim(ctx context.Context, sid, agentID string) (domain.TakeoverClaim, error) {
	if err := checkSessionID(sid); err != nil {
		return domain.TakeoverClaim{}, err
	}
	_, wasActive, err := b.takeover.Active(ctx, sid)
	if err != nil {
		return domain.TakeoverClaim{}, fmt.Errorf("failed to read takeover state: %w", err)
	}
	claim, err := b.takeover.Claim(ctx, sid, agentID, b.takeoverTTL)
	if err != nil {
		return claim, err
	}
	if !wasActive {
		b.logger.Info("Session claimed by agent", "session_id", sid, "agent", agentID)
		b.bus.Publish(events.Event{Type: events.SessionClaimed, SessionID: sid, Payload: claim})
		b.bus.Publish(events.Event{Type: events.BotPaused, SessionID: sid})
	}
	return claim, nil
}

// Release hands the session back to the bot. An empty agentID releases any claim.
func (b *Bot) Release(ctx context.Context, sid, agentID string) error {
	if err := checkSessionID(sid); err != nil {
		return err
	}
	if err := b.takeover.Release(ctx, sid, agentID); err != nil {
		return err
	}
	b.logger.Info("Session released", "session_id", sid, "agent", agentID)
	b.bus.Publish(events.Event{Type: events.SessionReleased, SessionID: sid, Payload: map[string]string{"agent_id": agentID}})
	b.bus.Publish(events.Event{Type: events.BotResumed, SessionID: sid})
	return nil
}

// ResetSession restarts the flow for sid. Transcript and lead are kept.
func (b *Bot) ResetSession(ctx context.Context, sid string) error {
	if err := checkSessionID(sid); err != nil {
		return err
	}
	return b.engine.Reset(ctx, sid)
}

// State returns the session's flow position.
func (b *Bot) State(ctx context.Context, sid string) (*domain.SessionState, error) {
	return b.engine.State(ctx, sid)
}

// Sessions returns the flow state of every stored session, most recently
// updated first. Sessions removed while listing are skipped.
func (b *Bot) Sessions(ctx context.Context) ([]*domain.SessionState, error) {
	ids, err := b.engine.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	out := make([]*domain.SessionState, 0, len(ids))
	for _, id := range ids {
		state, err := b.engine.State(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}

// Flow returns the active flow definition.
func (b *Bot) Flow() *domain.Definition {
	return b.engine.Flow()
}

// SetFlow swaps the flow definition without a restart.
func (b *Bot) SetFlow(def *domain.Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", domain.ErrInvalidFlow)
	}
	b.engine.SetFlow(def)
	b.logger.Info("Flow replaced", "version", def.Version, "nodes", len(def.Nodes))
	return nil
}

// KnownAction reports whether the bot has a handler for an action name.
func (b *Bot) KnownAction(name string) bool {
	return name == domain.ActionStoreAnswer || b.engine.Actions().Has(name)
}

// Leads exposes the lead repository for dashboards.
func (b *Bot) Leads() ports.LeadRepository {
	return b.leads
}

// Transcript exposes the transcript store.
func (b *Bot) Transcript() ports.TranscriptStore {
	return b.transcript
}

// Events exposes the event bus.
func (b *Bot) Events() *events.Bus {
	return b.bus
}

// IsClaimed reports whether a human agent currently holds sid.
func (b *Bot) IsClaimed(ctx context.Context, sid string) (domain.TakeoverClaim, bool, error) {
	return b.takeover.Active(ctx, sid)
}

// IsNotFound reports whether err means the session or lead does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrLeadNotFound)
}
