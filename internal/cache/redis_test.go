package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisFromClient(rdb, logger.Nop()), mr
}

func TestRedisGetSet(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "verse:John:3:16:NIV")
	assert.False(t, ok)

	require.True(t, c.Set(ctx, "verse:John:3:16:NIV", "for God so loved", TTLDay))
	val, ok := c.Get(ctx, "verse:John:3:16:NIV")
	require.True(t, ok)
	assert.Equal(t, "for God so loved", val)

	mr.FastForward(TTLDay + time.Second)
	_, ok = c.Get(ctx, "verse:John:3:16:NIV")
	assert.False(t, ok)
}

func TestRedisJSONHelpers(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Reference string `json:"reference"`
	}
	require.True(t, SetJSON(ctx, c, "k", payload{Reference: "Romans 8:28"}, TTLLong))

	var got payload
	require.True(t, GetJSON(ctx, c, "k", &got))
	assert.Equal(t, "Romans 8:28", got.Reference)

	require.True(t, c.Set(ctx, "broken", "{not json", TTLLong))
	assert.False(t, GetJSON(ctx, c, "broken", &got))
}

func TestRedisCounters(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	n, err := c.Incr(ctx, "rate:1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.True(t, c.Expire(ctx, "rate:1", time.Hour))

	n, err = c.Incr(ctx, "rate:1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, time.Hour, c.TTL(ctx, "rate:1"))
}

func TestRedisKeysAndDelete(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, "verse:search:a", "1", TTLMedium)
	c.Set(ctx, "verse:search:b", "1", TTLMedium)
	c.Set(ctx, "ai:response:x", "1", TTLLong)

	keys := c.Keys(ctx, "verse:search:*")
	sort.Strings(keys)
	assert.Equal(t, []string{"verse:search:a", "verse:search:b"}, keys)

	assert.True(t, c.Delete(ctx, "verse:search:a"))
	_, ok := c.Get(ctx, "verse:search:a")
	assert.False(t, ok)
}

func TestRedisUnavailableDegradesToMiss(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()
	mr.Close()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, c.Set(ctx, "k", "v", TTLShort))
	_, err := c.Incr(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, c.Ping(ctx))
}

func TestNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var c Cache = Noop{}

	assert.False(t, c.Set(ctx, "k", "v", TTLShort))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	_, err := c.Incr(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}
