package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/ports"
	"github.com/aretw0/leadflow/pkg/registry"
	"github.com/aretw0/leadflow/pkg/session"
)

const (
	// DefaultMaxHops bounds node entries within one turn.
	DefaultMaxHops = 50
	// DefaultActionTimeout bounds a single action handler run.
	DefaultActionTimeout = 45 * time.Second
)

// Picker returns an index in [0,n). It chooses among a node's prompt variants.
type Picker func(n int) int

// Engine drives sessions through a flow definition one inbound message at a time.
type Engine struct {
	flow          atomic.Pointer[domain.Definition]
	sessions      *session.Manager
	leads         ports.LeadRepository
	actions       *registry.Registry
	hooks         domain.LifecycleHooks
	logger        *slog.Logger
	pick          Picker
	maxHops       int
	actionTimeout time.Duration
	now           func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPicker replaces the random prompt choice, mostly for tests.
func WithPicker(p Picker) EngineOption {
	return func(e *Engine) {
		if p != nil {
			e.pick = p
		}
	}
}

// WithActionHandler binds h to the given action names.
func WithActionHandler(h ports.ActionHandler, names ...string) EngineOption {
	return func(e *Engine) {
		e.actions.Register(h, names...)
	}
}

// WithActionTimeout bounds every handler run.
func WithActionTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.actionTimeout = d
		}
	}
}

// WithMaxHops overrides the per-turn node entry guard.
func WithMaxHops(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxHops = n
		}
	}
}

// NewEngine creates an engine over def. Session state goes through sessions,
// captured answers and scores through leads.
func NewEngine(def *domain.Definition, sessions *session.Manager, leads ports.LeadRepository, opts ...EngineOption) *Engine {
	e := &Engine{
		sessions:      sessions,
		leads:         leads,
		actions:       registry.NewRegistry(),
		logger:        logging.NewNop(),
		pick:          rand.IntN,
		maxHops:       DefaultMaxHops,
		actionTimeout: DefaultActionTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.flow.Store(def)
	return e
}

// Flow returns the active definition.
func (e *Engine) Flow() *domain.Definition {
	return e.flow.Load()
}

// SetFlow swaps the active definition. Turns already running finish on the old one.
func (e *Engine) SetFlow(def *domain.Definition) {
	e.flow.Store(def)
}

// Actions exposes the handler registry, e.g. for flow validation.
func (e *Engine) Actions() *registry.Registry {
	return e.actions
}

// State returns a copy of the session's current state.
func (e *Engine) State(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Sessions lists the ids of every stored session.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Reset forgets the session's flow position. The next Step starts over.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	err := e.sessions.Delete(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	return err
}

// Step processes one inbound message and returns what to show the user.
// Errors are reserved for infrastructure failures; flow faults produce an
// apologetic payload instead.
//
// Action handlers run with the session lock released: the session is advanced
// past the action first, the handler is called, and its lead update is applied
// under the lock afterwards.
func (e *Engine) Step(ctx context.Context, sessionID, text string) (domain.RenderPayload, error) {
	def := e.flow.Load()
	if def == nil {
		return domain.RenderPayload{}, fmt.Errorf("%w: no flow loaded", domain.ErrInvalidFlow)
	}

	var (
		out     domain.RenderPayload
		pending *pendingAction
	)
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		t, err := e.begin(ctx, sessionID, def)
		if err != nil {
			return err
		}
		out = t.advance(text)
		if t.err != nil {
			return t.err
		}
		pending = t.pending
		return t.commit()
	})
	if err != nil {
		return domain.RenderPayload{}, err
	}

	for pending != nil {
		res := e.runAction(ctx, pending)
		out = res.Payload

		var next *pendingAction
		var override *domain.RenderPayload
		next, override, err = e.finishAction(ctx, def, pending, res)
		if err != nil {
			return out, err
		}
		if override != nil {
			out = *override
		}
		pending = next
	}
	return out, nil
}

// begin loads the session state, or prepares a fresh one at the start node.
func (e *Engine) begin(ctx context.Context, sessionID string, def *domain.Definition) (*turn, error) {
	t := &turn{e: e, ctx: ctx, def: def, sessionID: sessionID}
	state, err := e.sessions.Store().Load(ctx, sessionID)
	switch {
	case err == nil:
		t.state = state
	case errors.Is(err, domain.ErrSessionNotFound):
		t.state = domain.NewSessionState(sessionID, def.Start)
		t.created = true
	default:
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return t, nil
}

// runAction calls the handler outside the session lock with a bounded timeout.
func (e *Engine) runAction(ctx context.Context, p *pendingAction) domain.ActionResult {
	start := e.now()
	e.emitActionStart(ctx, p)

	actx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	res := p.handler.Handle(actx, p.input)
	cancel()

	e.emitActionDone(ctx, p, e.now().Sub(start), res.Err != nil)
	if res.Err != nil {
		e.logger.Warn("Action handler degraded",
			"session_id", p.input.SessionID,
			"node_id", p.input.NodeID,
			"action", p.input.Action,
			"err", res.Err,
		)
	}
	return res
}

// finishAction applies the handler's lead update and, when the session was
// advanced onto another action node that nobody has run yet, executes it.
func (e *Engine) finishAction(ctx context.Context, def *domain.Definition, p *pendingAction, res domain.ActionResult) (*pendingAction, *domain.RenderPayload, error) {
	var (
		next     *pendingAction
		override *domain.RenderPayload
	)
	sid := p.input.SessionID
	err := e.sessions.WithLock(ctx, sid, func(ctx context.Context) error {
		if res.Update != (domain.LeadUpdate{}) {
			if _, err := e.leads.Upsert(ctx, sid, res.Update); err != nil {
				return fmt.Errorf("failed to apply %s result: %w", p.input.Action, err)
			}
		}
		if p.chained == "" {
			return nil
		}

		state, err := e.sessions.Store().Load(ctx, sid)
		if err != nil {
			return fmt.Errorf("failed to reload session %s: %w", sid, err)
		}
		if state.CurrentNode != p.chained || state.Status == domain.StatusTerminal {
			e.logger.Debug("Chained action already handled", "session_id", sid, "node_id", p.chained)
			return nil
		}
		node, ok := def.Node(p.chained)
		if !ok || node.Kind != domain.KindAction {
			return nil
		}

		t := &turn{e: e, ctx: ctx, def: def, sessionID: sid, state: state, hops: p.hops}
		if !t.hop() {
			fault := faultPayload()
			override = &fault
			return nil
		}
		payload := t.execute(node)
		if t.err != nil {
			return t.err
		}
		if t.pending == nil {
			override = &payload
		}
		next = t.pending
		return t.commit()
	})
	return next, override, err
}

func (e *Engine) emitNodeEnter(ctx context.Context, sid string, node domain.FlowNode) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventNodeEnter, SessionID: sid},
		NodeID:    node.ID,
		NodeKind:  node.Kind.String(),
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, sid string, node domain.FlowNode) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventNodeLeave, SessionID: sid},
		NodeID:    node.ID,
		NodeKind:  node.Kind.String(),
	})
}

func (e *Engine) emitActionStart(ctx context.Context, p *pendingAction) {
	if e.hooks.OnActionStart == nil {
		return
	}
	e.hooks.OnActionStart(ctx, &domain.ActionEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventActionStart, SessionID: p.input.SessionID},
		NodeID:    p.input.NodeID,
		Action:    p.input.Action,
	})
}

func (e *Engine) emitActionDone(ctx context.Context, p *pendingAction, d time.Duration, isErr bool) {
	if e.hooks.OnActionDone == nil {
		return
	}
	e.hooks.OnActionDone(ctx, &domain.ActionEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventActionDone, SessionID: p.input.SessionID},
		NodeID:    p.input.NodeID,
		Action:    p.input.Action,
		Duration:  d,
		IsError:   isErr,
	})
}
