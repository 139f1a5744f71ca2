package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"shutterhub/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what a route does when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoRateStore = errors.New("rate limit store not configured")

// Usage is the state of one rate limit bucket after a hit.
type Usage struct {
	Allowed   bool
	Count     int64
	Remaining int64
}

// limitsDisabled reports whether the environment skips rate limiting. Local, test and
// load-test environments are never throttled.
func limitsDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit counts one hit against rl:<resource>:<id> and reports whether it is
// within limit for the current window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	usage, err := hit(ctx, rdb, resource, id, limit, window)
	if err != nil {
		return false, err
	}
	return usage.Allowed, nil
}

func hit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (Usage, error) {
	if limitsDisabled() {
		return Usage{Allowed: true, Remaining: int64(limit)}, nil
	}
	if rdb == nil {
		return Usage{}, errNoRateStore
	}

	key := "rl:" + resource + ":" + id
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		RedisErrors.WithLabelValues("incr").Inc()
		return Usage{}, err
	}
	// The first hit opens the window.
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			RedisErrors.WithLabelValues("expire").Inc()
		}
	}

	remaining := int64(limit) - cnt
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Allowed: cnt <= int64(limit), Count: cnt, Remaining: remaining}, nil
}

// RateLimit allows limit requests per window on a route, keyed by the signed-in user or
// the client IP. Redis outages let requests through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit outage policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		usage, err := hit(c.UserContext(), rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					models.NewInternalError(fmt.Errorf("rate limit %s: %w", resource, err)))
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(usage.Remaining, 10))
		if !usage.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewQuotaExceededError("Too many requests, slow down"))
		}
		return c.Next()
	}
}
