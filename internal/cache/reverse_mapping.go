// Package cache provides Redis-backed caches for hot lookup paths. All caches
// degrade to misses when Redis is unreachable; no request fails because the
// cache is down.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storekit/storekit-backend/internal/telemetry"
)

const (
	reverseMappingKeyPrefix  = "storekit:peer2store:"
	defaultReverseMappingTTL = 5 * time.Minute
	redisTimeout             = 100 * time.Millisecond
)

// ReverseMappingCache caches peer-store-id → store-UUID lookups so the guard
// middleware does not hit the database on every peer-format request. Only
// positive mappings are stored; negative results must stay uncached so a
// freshly linked store becomes visible immediately.
type ReverseMappingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReverseMappingCache creates a cache backed by the given Redis client.
// A non-positive ttl falls back to the five-minute default.
func NewReverseMappingCache(client *redis.Client, ttl time.Duration) *ReverseMappingCache {
	if ttl <= 0 {
		ttl = defaultReverseMappingTTL
	}
	return &ReverseMappingCache{client: client, ttl: ttl}
}

// GetStoreID returns the cached store id for a peer id. Any Redis failure is
// reported as a miss.
func (c *ReverseMappingCache) GetStoreID(ctx context.Context, peerID string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	storeID, err := c.client.Get(ctx, reverseMappingKey(peerID)).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("reverse mapping cache read failed", "error", err)
		}
		telemetry.ReverseMappingCacheMissesTotal.Inc()
		return "", false
	}
	telemetry.ReverseMappingCacheHitsTotal.Inc()
	return storeID, true
}

// SetStoreID stores a positive mapping with a short TTL. Failures are logged
// and ignored.
func (c *ReverseMappingCache) SetStoreID(ctx context.Context, peerID, storeID string) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if err := c.client.Set(ctx, reverseMappingKey(peerID), storeID, c.ttl).Err(); err != nil {
		slog.Warn("reverse mapping cache write failed", "error", err)
	}
}

// Invalidate drops the cached mapping for a peer id. Called when an admin
// removes or re-links a peer mapping so stale entries do not outlive the
// change.
func (c *ReverseMappingCache) Invalidate(ctx context.Context, peerID string) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if err := c.client.Del(ctx, reverseMappingKey(peerID)).Err(); err != nil {
		slog.Warn("reverse mapping cache invalidation failed", "error", err)
	}
}

func reverseMappingKey(peerID string) string {
	return reverseMappingKeyPrefix + peerID
}
