package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Allow counts one call by caller against resource and reports whether it
// is still within limit. Redis being absent or failing fails open: the call
// proceeds unthrottled.
func Allow(ctx context.Context, rdb *redis.Client, resource, caller string, limit int, window time.Duration) bool {
	if rdb == nil {
		return true
	}

	key := "ratelimit:" + resource + ":" + caller
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		rdb.Expire(ctx, key, window)
	}
	return count <= int64(limit)
}

// RateLimit throttles a route to limit calls per window. Calls are keyed by
// the authenticated user when the auth layer resolved one, by remote IP
// otherwise.
func RateLimit(rdb *redis.Client, resource string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var caller string
		if id := c.Locals("userID"); id != nil {
			caller = fmt.Sprintf("user:%v", id)
		} else {
			caller = "ip:" + c.IP()
		}

		if !Allow(c.Context(), rdb, resource, caller, limit, window) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
