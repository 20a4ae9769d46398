package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client using miniredis for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestAcquireCaptureIsExclusive(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	g := NewGuard(client, time.Minute)
	ctx := context.Background()

	// First acquisition wins
	ok, err := g.AcquireCapture(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.True(t, ok, "first capture claim should succeed")

	// A concurrent or replayed approval loses
	ok, err = g.AcquireCapture(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.False(t, ok, "second capture claim should fail")

	// Different order is unaffected
	ok, err = g.AcquireCapture(ctx, "ORDER-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseCaptureAllowsRetry(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	g := NewGuard(client, time.Minute)
	ctx := context.Background()

	ok, err := g.AcquireCapture(ctx, "ORDER-3")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, g.ReleaseCapture(ctx, "ORDER-3"))

	ok, err = g.AcquireCapture(ctx, "ORDER-3")
	require.NoError(t, err)
	assert.True(t, ok, "capture claim should succeed after release")
}

func TestCaptureGuardExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	g := NewGuard(client, 30*time.Second)
	ctx := context.Background()

	ok, err := g.AcquireCapture(ctx, "ORDER-4")
	require.NoError(t, err)
	require.True(t, ok)

	held, err := g.IsCaptured(ctx, "ORDER-4")
	require.NoError(t, err)
	assert.True(t, held)

	// After the TTL the claim is gone
	mr.FastForward(31 * time.Second)

	held, err = g.IsCaptured(ctx, "ORDER-4")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRegisterAndClearFlow(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	g := NewGuard(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, g.RegisterFlow(ctx, "ORDER-5", time.Minute))
	assert.True(t, mr.Exists(FlowKeyPrefix+"ORDER-5"))

	require.NoError(t, g.ClearFlow(ctx, "ORDER-5"))
	assert.False(t, mr.Exists(FlowKeyPrefix+"ORDER-5"))
}

func TestFlowKeyExpiresWithTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	g := NewGuard(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, g.RegisterFlow(ctx, "ORDER-6", 15*time.Minute))
	assert.True(t, mr.Exists(FlowKeyPrefix+"ORDER-6"))

	// The abandoned approval window closes on its own
	mr.FastForward(16 * time.Minute)
	assert.False(t, mr.Exists(FlowKeyPrefix+"ORDER-6"))
}
