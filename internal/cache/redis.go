// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogapi/internal/middleware"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// errorCounter counts failed Redis commands by name. Cache misses are not failures.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

func countFailure(name string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.RedisErrors.WithLabelValues(name).Inc()
	}
}

// parseAddr accepts either host:port or a redis:// URL.
func parseAddr(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return opts, nil
}

// InitRedis connects to addr and installs the client. When Redis is unreachable
// the client stays nil and callers run without caching, rate limits or fan-out.
func InitRedis(addr string) {
	client = nil

	opts, err := parseAddr(addr)
	if err != nil {
		middleware.Logger.Warn("redis disabled", "error", err)
		return
	}
	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unreachable, continuing without it", "addr", opts.Addr, "error", err)
		_ = c.Close()
		return
	}

	middleware.Logger.Info("redis connected", "addr", opts.Addr)
	SetClient(c)
}

// SetClient installs an already connected client, e.g. one backed by miniredis in tests.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errorCounter{})
	}
	client = c
}

// GetClient returns the current Redis client, or nil when Redis is disabled.
func GetClient() *redis.Client {
	return client
}
