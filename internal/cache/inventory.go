package cache

import (
	"context"
	"log/slog"
	"time"

	"townsquare/internal/middleware"

	"github.com/google/uuid"
)

const (
	FeedKeyName   = "feed:all"
	UserKeyPrefix = "user:"
)

const (
	FeedTTL = 30 * time.Second
	UserTTL = 5 * time.Minute
)

func FeedKey() string {
	return FeedKeyName
}

func UserKey(userID uuid.UUID) string {
	return UserKeyPrefix + userID.String()
}

// Invalidate drops key. Failures are logged; the entry then expires on its TTL.
func Invalidate(ctx context.Context, key string) {
	c := GetClient()
	if c == nil {
		return
	}
	if err := c.Del(ctx, key).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

func InvalidateFeed(ctx context.Context) {
	Invalidate(ctx, FeedKey())
}

func InvalidateUser(ctx context.Context, userID uuid.UUID) {
	Invalidate(ctx, UserKey(userID))
}
