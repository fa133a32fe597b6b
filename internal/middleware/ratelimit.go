package middleware

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig sets the per-client request budget
type RateLimitConfig struct {
	PerMinute int
	// KeyPrefix namespaces the counters, "rl:api" by default
	KeyPrefix string
	// Now is used for window boundaries, time.Now by default
	Now func() time.Time
}

// RateLimit implements a fixed one-minute window per client IP backed by
// redis counters. Redis failures let the request through.
func RateLimit(rdb redis.UniversalClient, config RateLimitConfig) fiber.Handler {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rl:api"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return func(c *fiber.Ctx) error {
		if config.PerMinute <= 0 {
			return c.Next()
		}

		now := config.Now()
		window := now.Truncate(time.Minute)
		key := WindowKey(config.KeyPrefix, c.IP(), window)

		count, err := rdb.Incr(c.UserContext(), key).Result()
		if err != nil {
			log.Printf("Rate limit check failed: %v", err)
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(c.UserContext(), key, 2*time.Minute)
		}

		reset := window.Add(time.Minute)
		remaining := int64(config.PerMinute) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(config.PerMinute))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > int64(config.PerMinute) {
			retryAfter := int64(reset.Sub(now).Seconds()) + 1
			c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"limit":       config.PerMinute,
				"retry_after": retryAfter,
			})
		}

		return c.Next()
	}
}

// WindowKey returns the counter key of a client for the window starting at window
func WindowKey(prefix, client string, window time.Time) string {
	return fmt.Sprintf("%s:%s:%d", prefix, client, window.Unix())
}
