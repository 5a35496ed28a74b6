package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoblog/cache"
)

type payload struct {
	Text string `json:"text"`
}

func newCache(t *testing.T) (*cache.InferenceCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewInferenceCache(rdb, time.Hour), mr
}

func TestInferenceCacheMissThenHit(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	var got payload
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", payload{Text: "hello"}))

	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", got.Text)
}

func TestInferenceCacheExpires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Text: "x"}))
	mr.FastForward(2 * time.Hour)

	ok, err := c.Get(ctx, "k", &payload{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInferenceCacheReportsConnectionErrors(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "k", &payload{})
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}

func TestKeyIsStableAndSeparatesParts(t *testing.T) {
	assert.Equal(t, cache.Key("a", "b"), cache.Key("a", "b"))
	assert.NotEqual(t, cache.Key("ab", "c"), cache.Key("a", "bc"))
	assert.Len(t, cache.Key("x"), 64)
}
