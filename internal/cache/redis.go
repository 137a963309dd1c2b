// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"townsquare/internal/middleware"
	"townsquare/internal/observability"

	"github.com/redis/go-redis/v9"
)

var (
	mu     sync.RWMutex
	client *redis.Client
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// InitRedis connects to addr (host:port or redis:// URL). When Redis is
// unreachable the package runs without a cache and nil is returned.
func InitRedis(addr string) *redis.Client {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			middleware.Logger.Warn("invalid REDIS_URL, continuing without cache",
				slog.String("redis_url", addr), slog.String("error", err.Error()))
			SetClient(nil)
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unavailable, continuing without cache", slog.String("error", err.Error()))
		_ = c.Close()
		SetClient(nil)
		return nil
	}

	middleware.Logger.Info("Redis connected successfully")
	SetClient(c)
	return c
}

// SetClient installs c as the package client and attaches the metrics hook.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(metricsHook{})
	}
	mu.Lock()
	client = c
	mu.Unlock()
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return client
}
