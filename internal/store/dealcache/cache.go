// internal/store/dealcache/cache.go

// Package dealcache keeps recently viewed deal snapshots in Redis so the
// approver-facing read path does not hit PostgreSQL on every poll. The cache
// is advisory: every failure is treated as a miss.
package dealcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"approval-service/internal/models"
)

const keyPrefix = "deal:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached deal, or (nil, false) on a miss or any Redis error.
func (c *Cache) Get(ctx context.Context, dealID string) (*models.Deal, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+dealID).Result()
	if err != nil {
		return nil, false
	}

	var deal models.Deal
	if err := json.Unmarshal([]byte(raw), &deal); err != nil {
		return nil, false
	}
	return &deal, true
}

// Set stores the deal for the configured TTL. Errors are swallowed.
func (c *Cache) Set(ctx context.Context, deal *models.Deal) {
	raw, err := json.Marshal(deal)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, keyPrefix+deal.ID, raw, c.ttl).Err()
}

// Invalidate drops the cached deal. Called after a decision commits so the
// dashboard never reads a stale status from the cache.
func (c *Cache) Invalidate(ctx context.Context, dealID string) {
	_ = c.client.Del(ctx, keyPrefix+dealID).Err()
}
