package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/cache"
	"github.com/sola-scriptura-chat-api/pkg/schema/db"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	cache cache.Cache
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(c cache.Cache) *HealthHandler {
	return &HealthHandler{cache: c}
}

// HealthResponse is the response for basic health check
type HealthResponse struct {
	Status string `json:"status"`
}

// DependencyHealthResponse is the response for a dependency health check
type DependencyHealthResponse struct {
	Status     string `json:"status"`
	Dependency string `json:"dependency"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// PostgresHealth handles GET /health/postgres
func (h *HealthHandler) PostgresHealth(c echo.Context) error {
	if !db.PostgresEnabled() {
		return dependencyDown(c, "not_configured", "PostgreSQL is not configured")
	}
	pgDB := db.GetPostgres()
	if pgDB == nil {
		return dependencyDown(c, "error", "PostgreSQL connection not available")
	}
	if err := pgDB.PingContext(c.Request().Context()); err != nil {
		return dependencyDown(c, "error", err.Error())
	}
	return c.JSON(http.StatusOK, DependencyHealthResponse{Status: "connected", Dependency: "postgres"})
}

// RedisHealth handles GET /health/redis
func (h *HealthHandler) RedisHealth(c echo.Context) error {
	err := h.cache.Ping(c.Request().Context())
	switch {
	case errors.Is(err, cache.ErrUnavailable):
		return dependencyDown(c, "not_configured", "Redis is not configured")
	case err != nil:
		return dependencyDown(c, "error", err.Error())
	}
	return c.JSON(http.StatusOK, DependencyHealthResponse{Status: "connected", Dependency: "redis"})
}

func dependencyDown(c echo.Context, status, reason string) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{
		"status": status,
		"error":  reason,
	})
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/health/postgres", h.PostgresHealth)
	g.GET("/health/redis", h.RedisHealth)
}
