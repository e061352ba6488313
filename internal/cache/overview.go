package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	overviewKeyPrefix = "bidcraft:overview:" // cached page: bidcraft:overview:{gen}:{query}
	overviewGenKey    = "bidcraft:overview:gen"
)

// OverviewCache keeps serialized overview pages for a short TTL. Writers
// bump a generation counter instead of enumerating keys, so invalidation is
// a single INCR and stale pages simply age out. A nil *OverviewCache is a
// valid no-op cache.
type OverviewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewOverviewCache(client *redis.Client, ttl time.Duration) *OverviewCache {
	return &OverviewCache{client: client, ttl: ttl}
}

// Get returns the cached payload for the query, if present.
func (c *OverviewCache) Get(ctx context.Context, query string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key(ctx, query)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *OverviewCache) Set(ctx context.Context, query string, payload []byte) {
	if c == nil {
		return
	}
	c.client.Set(ctx, c.key(ctx, query), payload, c.ttl)
}

// Invalidate makes all cached pages unreachable.
func (c *OverviewCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	c.client.Incr(ctx, overviewGenKey)
}

func (c *OverviewCache) key(ctx context.Context, query string) string {
	gen, err := c.client.Get(ctx, overviewGenKey).Int64()
	if err != nil {
		gen = 0
	}
	return fmt.Sprintf("%s%d:%s", overviewKeyPrefix, gen, query)
}
