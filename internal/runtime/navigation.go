package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/leads"
	"github.com/aretw0/leadflow/pkg/ports"
)

// turn is one locked read-modify-write of a session.
type turn struct {
	e         *Engine
	ctx       context.Context
	def       *domain.Definition
	sessionID string
	state     *domain.SessionState
	created   bool
	dirty     bool
	hops      int
	pending   *pendingAction
	err       error
}

// pendingAction is an action whose handler still has to run outside the lock.
type pendingAction struct {
	handler ports.ActionHandler
	input   domain.ActionInput
	// chained is the action node the session was advanced onto, if any.
	chained string
	hops    int
}

// advance applies the inbound text to the current node.
func (t *turn) advance(text string) domain.RenderPayload {
	if t.created {
		node, ok := t.def.Node(t.state.CurrentNode)
		if !ok {
			t.e.logger.Error("Start node missing from flow", "session_id", t.sessionID, "node_id", t.state.CurrentNode)
			return faultPayload()
		}
		t.dirty = true
		t.hops++
		return t.visit(node)
	}

	node, ok := t.def.Node(t.state.CurrentNode)
	if !ok {
		t.e.logger.Error("Session positioned on unknown node", "session_id", t.sessionID, "node_id", t.state.CurrentNode)
		return faultPayload()
	}

	if t.state.Status == domain.StatusTerminal {
		if node.Kind == domain.KindAction && t.e.actions.Has(node.Action) {
			return finishedPayload()
		}
		return t.e.render(node)
	}

	switch node.Kind {
	case domain.KindChoice:
		return t.choose(node, text)
	case domain.KindOpenInput:
		return t.answer(node, text)
	case domain.KindAction:
		return t.execute(node)
	default:
		return t.show(node)
	}
}

// choose matches text against the node's choices in declaration order.
// Anything that does not match re-renders the node unchanged.
func (t *turn) choose(node domain.FlowNode, text string) domain.RenderPayload {
	for _, c := range node.Choices {
		if !c.Matches(text) {
			continue
		}
		if c.Signal != nil {
			t.state.SetSignal(*c.Signal)
			t.dirty = true
		}
		if c.Next == "" {
			return t.e.render(node)
		}
		return t.enter(c.Next, &node)
	}
	return t.e.render(node)
}

// answer handles an open-input node. The first visit arms it; the message after
// that is the answer, captured at most once.
func (t *turn) answer(node domain.FlowNode, text string) domain.RenderPayload {
	awaited, waiting := t.state.Disarm()
	if !waiting {
		t.state.Arm(node.ID)
		t.dirty = true
		return t.e.render(node)
	}
	t.dirty = true

	if awaited == node.ID {
		if node.Action == domain.ActionStoreAnswer {
			if err := t.capture(node, text); err != nil {
				t.err = err
				return domain.RenderPayload{}
			}
		}
	} else {
		t.e.logger.Debug("Discarding answer for a node no longer current",
			"session_id", t.sessionID,
			"node_id", node.ID,
			"awaited", awaited,
		)
	}

	if node.Next == "" {
		return domain.RenderPayload{ChatMode: domain.ModeGuided}
	}
	return t.enter(node.Next, &node)
}

// capture stores the answer on the lead.
func (t *turn) capture(node domain.FlowNode, text string) error {
	update := domain.LeadUpdate{Note: text, LastMessage: &text}
	if node.InputType == domain.InputDualContact {
		c := leads.ExtractContact(text)
		if c.Email != "" {
			update.Email = &c.Email
		}
		if c.Phone != "" {
			update.Phone = &c.Phone
		}
	}
	if _, err := t.e.leads.Upsert(t.ctx, t.sessionID, update); err != nil {
		return fmt.Errorf("failed to store answer for %s: %w", node.ID, err)
	}
	return nil
}

// hop counts a node entry and reports whether the guard still allows it.
func (t *turn) hop() bool {
	t.hops++
	if t.hops > t.e.maxHops {
		t.e.logger.Warn("Too many node entries in one turn, flow is probably cyclic",
			"session_id", t.sessionID,
			"node_id", t.state.CurrentNode,
			"hops", t.hops,
		)
		return false
	}
	return true
}

// enter moves the session onto id and reacts to the node's kind.
func (t *turn) enter(id string, from *domain.FlowNode) domain.RenderPayload {
	if !t.hop() {
		return faultPayload()
	}
	if from != nil {
		t.e.emitNodeLeave(t.ctx, t.sessionID, *from)
	}

	t.state.MoveTo(id)
	t.dirty = true

	node, ok := t.def.Node(id)
	if !ok {
		t.e.logger.Error("Transition to unknown node", "session_id", t.sessionID, "node_id", id)
		return faultPayload()
	}
	return t.visit(node)
}

func (t *turn) visit(node domain.FlowNode) domain.RenderPayload {
	t.e.emitNodeEnter(t.ctx, t.sessionID, node)
	switch node.Kind {
	case domain.KindChoice:
		return t.e.render(node)
	case domain.KindOpenInput:
		t.state.Arm(node.ID)
		return t.e.render(node)
	case domain.KindAction:
		return t.execute(node)
	default:
		return t.show(node)
	}
}

// show renders a non-interactive node. Without a successor the story ends here.
func (t *turn) show(node domain.FlowNode) domain.RenderPayload {
	if node.Next == "" && t.state.Status != domain.StatusTerminal {
		t.state.Status = domain.StatusTerminal
		t.dirty = true
	}
	return t.e.render(node)
}

// execute prepares an action run. The session is moved past the action before
// the handler runs, so a duplicate message can never trigger it twice.
func (t *turn) execute(node domain.FlowNode) domain.RenderPayload {
	handler, ok := t.e.actions.Lookup(node.Action)
	if !ok {
		t.e.logger.Warn("Unknown action, rendering node only",
			"session_id", t.sessionID,
			"node_id", node.ID,
			"action", node.Action,
		)
		return t.show(node)
	}

	lead, err := t.e.leads.Get(t.ctx, t.sessionID)
	if errors.Is(err, domain.ErrLeadNotFound) {
		lead = domain.NewLead(t.sessionID, t.e.now())
	} else if err != nil {
		t.err = fmt.Errorf("failed to load lead %s: %w", t.sessionID, err)
		return domain.RenderPayload{}
	}

	signals := make(map[string]string, len(t.state.Signals))
	for k, v := range t.state.Signals {
		signals[k] = v
	}
	p := &pendingAction{
		handler: handler,
		input: domain.ActionInput{
			SessionID: t.sessionID,
			NodeID:    node.ID,
			Action:    node.Action,
			Lead:      lead,
			Signals:   signals,
		},
	}

	t.dirty = true
	if node.Next == "" {
		t.state.Status = domain.StatusTerminal
	} else {
		t.e.emitNodeLeave(t.ctx, t.sessionID, node)
		t.state.MoveTo(node.Next)
		if target, ok := t.def.Node(node.Next); ok {
			t.e.emitNodeEnter(t.ctx, t.sessionID, target)
			switch target.Kind {
			case domain.KindOpenInput:
				t.state.Arm(target.ID)
			case domain.KindAction:
				p.chained = target.ID
			}
		}
	}
	p.hops = t.hops
	t.pending = p
	return domain.RenderPayload{}
}

// commit persists the state if the turn changed it.
func (t *turn) commit() error {
	if !t.dirty {
		return nil
	}
	t.state.UpdatedAt = t.e.now()
	if err := t.e.sessions.Store().Save(t.ctx, t.sessionID, t.state); err != nil {
		return fmt.Errorf("failed to save session %s: %w", t.sessionID, err)
	}
	return nil
}
