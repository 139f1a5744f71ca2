// Package cache holds the shared Redis client and the read-through helpers the
// services use for profiles, forum categories and recommendations.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"shutterhub/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// shared is nil when Redis is not configured or was unreachable at startup. Every
// helper in this package treats that as a cache miss.
var shared atomic.Pointer[redis.Client]

// errorCounter feeds redis_errors_total. redis.Nil is a miss, not an error.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			middleware.RedisErrors.WithLabelValues("dial").Inc()
		}
		return conn, err
	}
}

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// ParseOptions accepts a redis:// or rediss:// URL or a bare host:port.
func ParseOptions(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis address is empty")
	}
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// Connect dials Redis, pings it and installs the client for the package helpers.
// On failure the helpers fall back to their fetch functions and the error is returned
// so the caller can decide whether a missing cache is fatal.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := ParseOptions(addr)
	if err != nil {
		SetClient(nil)
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	c := redis.NewClient(opts)
	c.AddHook(errorCounter{})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		SetClient(nil)
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	shared.Store(c)
	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	return c, nil
}

// GetClient returns the shared client or nil.
func GetClient() *redis.Client {
	return shared.Load()
}

// SetClient replaces the shared client. Tests point it at miniredis.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errorCounter{})
	}
	shared.Store(c)
}
