package entitlement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisDisplayCache is a DisplayCache backed by Redis, for multi-instance
// deployments. Failures degrade to cache misses; the cache is never load
// bearing for correctness.
type RedisDisplayCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisDisplayCache creates a cache on the given client with the
// given TTL.
func NewRedisDisplayCache(client *redis.Client, ttl time.Duration) *RedisDisplayCache {
	if client == nil {
		panic("entitlement: redis client is required")
	}
	return &RedisDisplayCache{
		client: client,
		ttl:    ttl,
		prefix: "entitlements:",
	}
}

func (c *RedisDisplayCache) Get(ctx context.Context, subscriberID uuid.UUID) (*PlanInfo, bool) {
	raw, err := c.client.Get(ctx, c.prefix+subscriberID.String()).Bytes()
	if err != nil {
		return nil, false
	}

	var info PlanInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, false
	}
	return &info, true
}

func (c *RedisDisplayCache) Set(ctx context.Context, subscriberID uuid.UUID, info *PlanInfo) {
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+subscriberID.String(), raw, c.ttl).Err()
}
