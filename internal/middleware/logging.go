// Package middleware provides the request logging and rate limiting layers.
package middleware

import (
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Handlers and the GORM
// bridge log through it so every line carries the same JSON shape.
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// RequestLogger logs one line per handled request: outcome, the resolved
// caller when the auth layer identified one, and the request id.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		attrs := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}
		if id := c.Locals("userID"); id != nil {
			attrs = append(attrs, slog.Any("user_id", id))
		}
		if rid := c.Locals("requestid"); rid != nil {
			attrs = append(attrs, slog.Any("request_id", rid))
		}

		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			Logger.Error("request failed", attrs...)
			return err
		}
		Logger.Info("request handled", attrs...)
		return nil
	}
}
