package handlers

import (
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sola-scriptura-chat-api/internal/cache"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/stretchr/testify/assert"
)

func newHealthServer(c cache.Cache) *echo.Echo {
	e := echo.New()
	NewHealthHandler(c).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newHealthServer(cache.Noop{})
	rec := do(e, http.MethodGet, "/api/v1/health", "", "")
	statusOK(t, rec)
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)
}

func TestRedisHealth(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		e := newHealthServer(cache.Noop{})

		rec := do(e, http.MethodGet, "/api/v1/health/redis", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "not_configured", decode[map[string]string](t, rec)["status"])
	})

	t.Run("connected", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		e := newHealthServer(cache.NewRedisFromClient(rdb, logger.Nop()))

		rec := do(e, http.MethodGet, "/api/v1/health/redis", "", "")
		statusOK(t, rec)
		body := decode[DependencyHealthResponse](t, rec)
		assert.Equal(t, "connected", body.Status)
		assert.Equal(t, "redis", body.Dependency)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { _ = rdb.Close() })
		e := newHealthServer(cache.NewRedisFromClient(rdb, logger.Nop()))
		mr.Close()

		rec := do(e, http.MethodGet, "/api/v1/health/redis", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "error", decode[map[string]string](t, rec)["status"])
	})
}
