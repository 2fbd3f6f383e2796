package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeover_Expires(t *testing.T) {
	gate := NewTakeover(time.Hour)
	ctx := context.Background()

	_, err := gate.Claim(ctx, "sid", "agent-a", 20*time.Millisecond)
	require.NoError(t, err)

	_, active, _ := gate.Active(ctx, "sid")
	assert.True(t, active)

	time.Sleep(40 * time.Millisecond)

	_, active, _ = gate.Active(ctx, "sid")
	assert.False(t, active, "claim should lapse after its ttl")

	_, err = gate.Claim(ctx, "sid", "agent-b", 0)
	assert.NoError(t, err, "expired claims don't block other agents")
}
