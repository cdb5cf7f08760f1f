package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sola-scriptura-chat-api/internal/cache"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = RateLimits{Free: 2, Paid: 3, Premium: 5}

// 02:10 UTC on 1 Jan 1970 sits in the third one-hour slot
var fixedNow = time.Unix(2*3600+600, 0)

func newTestLimiter(t *testing.T, c cache.Cache) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(c, time.Hour, testLimits, logger.Nop())
	rl.now = func() time.Time { return fixedNow }
	return rl
}

func newRedisCache(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewRedisFromClient(rdb, logger.Nop()), mr
}

func TestRateLimitAnonymous(t *testing.T) {
	t.Parallel()

	c, mr := newRedisCache(t)
	e := newTestEcho(false)
	e.GET("/daily", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, newTestLimiter(t, c).Middleware())

	first := serve(e, httptest.NewRequest(http.MethodGet, "/daily", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "1", first.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "10800", first.Header().Get(HeaderRateLimitReset))

	second := serve(e, httptest.NewRequest(http.MethodGet, "/daily", nil))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get(HeaderRateLimitRemaining))

	third := serve(e, httptest.NewRequest(http.MethodGet, "/daily", nil))
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "0", third.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "3000", third.Header().Get("Retry-After"))

	body := decodeError(t, third)
	assert.Equal(t, 3000, body.RetryAfter)
	assert.Equal(t, "Rate limit exceeded. Maximum 2 requests per hour.", body.Message)

	key := "rate:ip:192.0.2.1:2"
	require.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestRateLimitPerKeyTier(t *testing.T) {
	t.Parallel()

	c, mr := newRedisCache(t)
	rl := newTestLimiter(t, c)

	e := newTestEcho(false)
	paid := &models.APIKey{ID: 9, Tier: models.TierPaid}
	e.GET("/paid", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, withKey(paid), rl.Middleware())

	for i := 0; i < 3; i++ {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/paid", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, "3", rec.Header().Get(HeaderRateLimitLimit))
	}
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/paid", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, mr.Exists("rate:key:9:2"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	t.Parallel()

	e := newTestEcho(false)
	e.GET("/daily", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, newTestLimiter(t, cache.Noop{}).Middleware())

	for i := 0; i < 5; i++ {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/daily", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(HeaderRateLimitLimit))
	}
}

func TestRateLimitsFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, testLimits.For(models.TierFree))
	assert.Equal(t, 3, testLimits.For(models.TierPaid))
	assert.Equal(t, 5, testLimits.For(models.TierPremium))
	assert.Equal(t, 2, testLimits.For("platinum"))
}

func TestRateLimitRepairsMissingExpiry(t *testing.T) {
	t.Parallel()

	c, mr := newRedisCache(t)
	e := newTestEcho(false)
	e.GET("/daily", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, newTestLimiter(t, c).Middleware())

	key := "rate:ip:192.0.2.1:2"
	require.NoError(t, mr.Set(key, "1"))
	require.Zero(t, mr.TTL(key))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/daily", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, time.Hour, mr.TTL(key))
}
