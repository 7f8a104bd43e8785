package leads

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T) (*RedisIdempotencyGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyGuard(client, time.Hour), mr
}

func TestRedisIdempotencyGuard_Lifecycle(t *testing.T) {
	guard, mr := newRedisGuard(t)
	ctx := context.Background()

	state, _, err := guard.Claim(ctx, "form-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimAcquired, state)
	assert.True(t, mr.Exists("lead:idem:form-1"))

	state, _, err = guard.Claim(ctx, "form-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimInFlight, state)

	require.NoError(t, guard.Complete(ctx, "form-1", "lead-9"))
	state, leadID, err := guard.Claim(ctx, "form-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimCompleted, state)
	assert.Equal(t, "lead-9", leadID)

	mr.FastForward(2 * time.Hour)
	state, _, err = guard.Claim(ctx, "form-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimAcquired, state)
}

func TestRedisIdempotencyGuard_Release(t *testing.T) {
	guard, _ := newRedisGuard(t)
	ctx := context.Background()

	_, _, err := guard.Claim(ctx, "form-2")
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, "form-2"))

	state, _, err := guard.Claim(ctx, "form-2")
	require.NoError(t, err)
	assert.Equal(t, ClaimAcquired, state)
}

func TestMemoryIdempotencyGuard_Expiry(t *testing.T) {
	guard := NewMemoryIdempotencyGuard(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }
	ctx := context.Background()

	state, _, _ := guard.Claim(ctx, "k")
	assert.Equal(t, ClaimAcquired, state)
	require.NoError(t, guard.Complete(ctx, "k", "lead-1"))

	state, id, _ := guard.Claim(ctx, "k")
	assert.Equal(t, ClaimCompleted, state)
	assert.Equal(t, "lead-1", id)

	now = now.Add(2 * time.Minute)
	state, _, _ = guard.Claim(ctx, "k")
	assert.Equal(t, ClaimAcquired, state)
}
