package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/middleware"
	"github.com/sola-scriptura-chat-api/internal/models"
)

// DailyHandler serves the verse of the day
type DailyHandler struct {
	assistant   Assistant
	translation string
}

// NewDailyHandler creates a new daily handler
func NewDailyHandler(assistant Assistant, translation string) *DailyHandler {
	return &DailyHandler{assistant: assistant, translation: translation}
}

// Daily handles GET /daily
func (h *DailyHandler) Daily(c echo.Context) error {
	var req models.DailyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Mood = sanitizeInput(req.Mood)
	req.Situation = sanitizeInput(req.Situation)
	req.Translation = translationOr(req.Translation, h.translation)

	resp, err := h.assistant.Daily(c.Request().Context(), req)
	if err != nil {
		return err
	}
	middleware.SetTokensUsed(c, resp.TokensUsed)
	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers the daily route
func (h *DailyHandler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.GET("/daily", h.Daily, m...)
}
