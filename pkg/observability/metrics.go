package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/leadflow/pkg/domain"
)

// Metrics groups the collectors fed by the engine and the chat service.
type Metrics struct {
	NodeVisits     *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	ActionFailures *prometheus.CounterVec
	ChatTurns      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"node_id"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadflow_action_duration_seconds",
				Help:    "Duration of action handler executions",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"action"},
		),
		ActionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_action_failures_total",
				Help: "Total number of failed action handler executions",
			},
			[]string{"action"},
		),
		ChatTurns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_chat_turns_total",
				Help: "Total number of chat turns by outcome",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.NodeVisits, m.ActionDuration, m.ActionFailures, m.ChatTurns)
	}
	return m
}

// Chat turn outcomes.
const (
	OutcomeBot   = "bot"
	OutcomeHuman = "human"
	OutcomeError = "error"
)

// ObserveTurn counts one chat turn. Safe on a nil receiver.
func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.ChatTurns.WithLabelValues(outcome).Inc()
}

// Hooks returns lifecycle hooks that log every event at debug level and record
// metrics. Either argument may be nil.
func Hooks(logger *slog.Logger, m *Metrics) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			if logger != nil {
				logger.DebugContext(ctx, "node_enter", "session_id", e.SessionID, "node_id", e.NodeID, "kind", e.NodeKind)
			}
			if m != nil {
				m.NodeVisits.WithLabelValues(e.NodeID).Inc()
			}
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if logger != nil {
				logger.DebugContext(ctx, "node_leave", "session_id", e.SessionID, "node_id", e.NodeID)
			}
		},
		OnActionStart: func(ctx context.Context, e *domain.ActionEvent) {
			if logger != nil {
				logger.DebugContext(ctx, "action_start", "session_id", e.SessionID, "node_id", e.NodeID, "action", e.Action)
			}
		},
		OnActionDone: func(ctx context.Context, e *domain.ActionEvent) {
			if logger != nil {
				logger.DebugContext(ctx, "action_done",
					"session_id", e.SessionID,
					"action", e.Action,
					"duration", e.Duration,
					"is_error", e.IsError,
				)
			}
			if m != nil {
				m.ActionDuration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
				if e.IsError {
					m.ActionFailures.WithLabelValues(e.Action).Inc()
				}
			}
		},
	}
}

// Chain merges hooks so each callback runs in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnNodeEnter = chainNode(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chainNode(out.OnNodeLeave, h.OnNodeLeave)
		out.OnActionStart = chainAction(out.OnActionStart, h.OnActionStart)
		out.OnActionDone = chainAction(out.OnActionDone, h.OnActionDone)
	}
	return out
}

func chainNode(a, b func(context.Context, *domain.NodeEvent)) func(context.Context, *domain.NodeEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.NodeEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainAction(a, b func(context.Context, *domain.ActionEvent)) func(context.Context, *domain.ActionEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.ActionEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
