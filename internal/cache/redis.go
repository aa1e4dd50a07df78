// Package cache holds the Redis connection backing the per-user rate limits.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Connect opens a Redis client for the given address and verifies it with a
// ping. When Redis is unreachable it returns nil: the limiter treats a nil
// client as "no throttling" so the API keeps serving without it.
func Connect(addr string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, rate limiting disabled",
			slog.String("addr", addr),
			slog.String("error", err.Error()))
		return nil
	}

	slog.Info("redis connected", slog.String("addr", addr))
	return client
}
