package cache

import (
	"context"
	"fmt"

	"github.com/bidcraft/backend/config"
	"github.com/redis/go-redis/v9"
)

// Connect opens and pings a Redis client. The cache is optional: when Redis
// is disabled or unreachable the API runs without it.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
