package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/middleware"
	"github.com/sola-scriptura-chat-api/internal/models"
)

const maxTopicList = 500

// TopicHandler handles the topical index
type TopicHandler struct {
	assistant   Assistant
	translation string
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(assistant Assistant, translation string) *TopicHandler {
	return &TopicHandler{assistant: assistant, translation: translation}
}

// List handles GET /topics
func (h *TopicHandler) List(c echo.Context) error {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return apperr.Validation("limit must be a number")
	}
	if limit < 0 || limit > maxTopicList {
		return apperr.Validation("limit must be between 1 and 500")
	}

	resp, err := h.assistant.Topics(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Get handles GET /topics/:topic
func (h *TopicHandler) Get(c echo.Context) error {
	var req models.TopicRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid query parameters")
	}
	req.Topic = sanitizeInput(pathValue(req.Topic))
	if err := c.Validate(&req); err != nil {
		return err
	}
	req.Translation = translationOr(req.Translation, h.translation)

	resp, err := h.assistant.Topic(c.Request().Context(), req)
	if err != nil {
		return err
	}
	middleware.SetTokensUsed(c, resp.TokensUsed)
	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers topic routes
func (h *TopicHandler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.GET("/topics", h.List, m...)
	g.GET("/topics/:topic", h.Get, m...)
}
