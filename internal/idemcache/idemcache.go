// Package idemcache is a Redis-backed fast path in front of the outbox's
// Postgres unique-constraint idempotency guarantee (spec §3 "idempotencyKey
// is unique across the entire outbox lifetime"). A hot duplicate submission
// (the same node or provider retrying within the idempotency bucket) is
// rejected here without a database round trip; the Postgres constraint
// remains the source of truth if the cache misses or is unavailable.
package idemcache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache records idempotency keys that have already been seen, with a TTL
// slightly longer than the idempotency bucket width so a key naturally
// expires once it can no longer recur (spec §6 "canonical idempotency key").
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Cache against addr. An empty addr yields a Cache whose
// SeenBefore always reports false, so the runtime degrades to "no fast
// path" rather than failing to start when Redis is unconfigured (spec §6
// idemcache DOMAIN STACK entry: "degrades to a no-op when unconfigured").
func New(addr string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if addr == "" {
		return &Cache{ttl: ttl}
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// SeenBefore atomically records key and reports whether it had already been
// recorded (SETNX semantics). Returns (false, nil) when unconfigured or on
// a transient Redis error — callers must still rely on the store's own
// unique constraint, this is an optimization, not the source of truth.
func (c *Cache) SeenBefore(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	set, err := c.client.SetNX(ctx, cacheKey(key), time.Now().Unix(), c.ttl).Result()
	if err != nil {
		return false, nil
	}
	return !set, nil
}

// Forget removes a key, used in tests and when an outbox insert fails after
// the cache already recorded the key (so a legitimate retry isn't blocked).
func (c *Cache) Forget(ctx context.Context, key string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKey(key)).Err()
}

// Close closes the underlying Redis client, if any.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func cacheKey(key string) string {
	return "idem:" + key
}
