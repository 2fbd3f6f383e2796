package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/pkg/domain"
)

func TestHooks_RecordMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	var buf bytes.Buffer
	hooks := Hooks(logging.NewWithWriter(&buf, slog.LevelDebug), m)
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: domain.EventBase{SessionID: "s1"}, NodeID: "welcome"})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: "welcome"})
	hooks.OnActionDone(ctx, &domain.ActionEvent{Action: "compute_fit", Duration: 20 * time.Millisecond})
	hooks.OnActionDone(ctx, &domain.ActionEvent{Action: "compute_fit", Duration: time.Second, IsError: true})
	m.ObserveTurn(OutcomeBot)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodeVisits.WithLabelValues("welcome")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionFailures.WithLabelValues("compute_fit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatTurns.WithLabelValues(OutcomeBot)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ActionDuration))
	assert.Contains(t, buf.String(), "node_id=welcome")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestChain(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, "b") }}

	h := Chain(a, domain.LifecycleHooks{}, b)
	h.OnNodeEnter(context.Background(), &domain.NodeEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, h.OnActionDone)
}

func TestObserveTurn_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.ObserveTurn(OutcomeError) })
}
