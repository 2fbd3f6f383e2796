package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow/pkg/adapters/redis"
	"github.com/aretw0/leadflow/pkg/ports"
)

func TestRedisTakeover_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunTakeoverContract(t, redis.NewTakeover(client, redis.DefaultPrefix, 15*time.Minute))
}

func TestRedisTakeover_Expires(t *testing.T) {
	mr, client := newClient(t)
	gate := redis.NewTakeover(client, redis.DefaultPrefix, time.Minute)
	ctx := context.Background()

	_, err := gate.Claim(ctx, "sid", "agent-a", 0)
	require.NoError(t, err)
	assert.True(t, mr.Exists("leadflow:takeover:sid"))

	mr.FastForward(2 * time.Minute)

	_, active, err := gate.Active(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, active)
}
