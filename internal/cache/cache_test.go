package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"townsquare/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

type cachedThing struct {
	Name string `json:"name"`
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			dest.Name = "from-store"
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "thing:1", &first, time.Minute, fetch(&first)))
	assert.Equal(t, "from-store", first.Name)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("thing:1"))

	var second cachedThing
	require.NoError(t, Aside(ctx, "thing:1", &second, time.Minute, fetch(&second)))
	assert.Equal(t, "from-store", second.Name)
	assert.Equal(t, 1, calls, "second read is served from Redis")

	mr.FastForward(2 * time.Minute)
	var third cachedThing
	require.NoError(t, Aside(ctx, "thing:1", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls, "expired entries are refetched")
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)

	var dest cachedThing
	err := Aside(context.Background(), "thing:2", &dest, time.Minute, func() error {
		return errors.New("store down")
	})
	require.Error(t, err)
	assert.False(t, mr.Exists("thing:2"))
}

func TestAside_WithoutRedisBypasses(t *testing.T) {
	SetClient(nil)

	calls := 0
	var dest cachedThing
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "thing:3", &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAside_RedisFailureFallsBackToStore(t *testing.T) {
	mr := setupMiniredis(t)
	before := testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get"))
	mr.SetError("ERR simulated failure")

	var dest cachedThing
	err := Aside(context.Background(), "thing:4", &dest, time.Minute, func() error {
		dest.Name = "fallback"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", dest.Name)
	assert.Greater(t, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get")), before)
}

func TestInvalidate(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	uid := uuid.New()

	require.NoError(t, mr.Set(FeedKey(), "[]"))
	require.NoError(t, mr.Set(UserKey(uid), "{}"))

	InvalidateFeed(ctx)
	InvalidateUser(ctx, uid)

	assert.False(t, mr.Exists(FeedKey()))
	assert.False(t, mr.Exists(UserKey(uid)))
}

func TestKeys(t *testing.T) {
	uid := uuid.MustParse("6f1c2f5e-8a52-4d55-9a54-2b9cc0c2b7f1")
	assert.Equal(t, "feed:all", FeedKey())
	assert.Equal(t, "user:6f1c2f5e-8a52-4d55-9a54-2b9cc0c2b7f1", UserKey(uid))
	assert.Equal(t, "user", keyFamily(UserKey(uid)))
}

func TestInitRedis_UnreachableReturnsNil(t *testing.T) {
	t.Cleanup(func() { SetClient(nil) })
	assert.Nil(t, InitRedis("127.0.0.1:1"))
	assert.Nil(t, GetClient())

	assert.Nil(t, InitRedis("redis://%%bad"))
}

func TestInitRedis_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(func() {
		if c := GetClient(); c != nil {
			_ = c.Close()
		}
		SetClient(nil)
	})

	c := InitRedis(mr.Addr())
	require.NotNil(t, c)
	assert.Same(t, c, GetClient())
}
