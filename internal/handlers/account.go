package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/models"
)

// UsageReporter reports monthly usage for a key
type UsageReporter interface {
	Usage(ctx context.Context, id int64) (*models.UsageResponse, error)
}

// AccountHandler handles account endpoints
type AccountHandler struct {
	usage UsageReporter
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(usage UsageReporter) *AccountHandler {
	return &AccountHandler{usage: usage}
}

// Usage handles GET /account/usage
func (h *AccountHandler) Usage(c echo.Context) error {
	key, err := callerKey(c)
	if err != nil {
		return err
	}

	resp, err := h.usage.Usage(c.Request().Context(), key.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers account routes
func (h *AccountHandler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.GET("/account/usage", h.Usage, m...)
}
