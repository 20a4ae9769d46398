package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	captureKeyPrefix = "booking_capture:"
	// FlowKeyPrefix marks an approval window in Redis; key expiry drives the
	// abandoned-flow cleanup via keyspace notifications.
	FlowKeyPrefix = "booking_flow:"
)

// Guard serializes capture attempts per provider order id and tracks the
// approval window TTL for in-flight flows.
type Guard struct {
	Client     *redis.Client
	Logger     *log.Logger
	CaptureTTL time.Duration
}

func NewGuard(client *redis.Client, captureTTL time.Duration) *Guard {
	return &Guard{
		Client:     client,
		Logger:     log.Default(),
		CaptureTTL: captureTTL,
	}
}

// AcquireCapture claims the right to capture an order. Returns false when a
// concurrent (or replayed) approval already claimed it.
func (g *Guard) AcquireCapture(ctx context.Context, orderID string) (bool, error) {
	key := captureKeyPrefix + orderID
	ok, err := g.Client.SetNX(ctx, key, "captured", g.CaptureTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire capture guard for %s: %w", orderID, err)
	}
	return ok, nil
}

// ReleaseCapture drops the claim, allowing a fresh attempt for the order.
func (g *Guard) ReleaseCapture(ctx context.Context, orderID string) error {
	key := captureKeyPrefix + orderID
	_, err := g.Client.Del(ctx, key).Result()
	return err
}

// RegisterFlow stores the approval-window key with a TTL. When the key
// expires uncleared, the keyspace subscriber fails the abandoned flow.
func (g *Guard) RegisterFlow(ctx context.Context, orderID string, ttl time.Duration) error {
	key := FlowKeyPrefix + orderID
	if err := g.Client.Set(ctx, key, "awaiting_approval", ttl).Err(); err != nil {
		return fmt.Errorf("register flow key for %s: %w", orderID, err)
	}
	return nil
}

// ClearFlow removes the approval-window key once the flow is terminal.
func (g *Guard) ClearFlow(ctx context.Context, orderID string) error {
	key := FlowKeyPrefix + orderID
	_, err := g.Client.Del(ctx, key).Result()
	return err
}

// IsCaptured reports whether an order's capture claim is held.
func (g *Guard) IsCaptured(ctx context.Context, orderID string) (bool, error) {
	key := captureKeyPrefix + orderID
	_, err := g.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
