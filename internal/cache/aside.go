package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"townsquare/internal/middleware"
	"townsquare/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	c := GetClient()
	if c == nil {
		return false, nil
	}
	s, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(s, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	c := GetClient()
	if c == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch, which must populate dest,
// and stores the result with ttl. Redis failures never fail the call: the
// value is fetched from the source instead.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	family := keyFamily(key)
	if GetClient() == nil {
		observability.CacheLookups.WithLabelValues(family, "bypass").Inc()
		return fetch()
	}

	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed, falling back to store",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		observability.CacheLookups.WithLabelValues(family, "hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues(family, "miss").Inc()

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
