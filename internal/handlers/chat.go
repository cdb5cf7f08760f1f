package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/middleware"
	"github.com/sola-scriptura-chat-api/internal/models"
)

// ChatHandler handles the conversational endpoints
type ChatHandler struct {
	assistant   Assistant
	translation string
}

// NewChatHandler creates a new chat handler
func NewChatHandler(assistant Assistant, translation string) *ChatHandler {
	return &ChatHandler{assistant: assistant, translation: translation}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(c echo.Context) error {
	key, err := callerKey(c)
	if err != nil {
		return err
	}

	var req models.ChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Message = sanitizeInput(req.Message)
	if req.Message == "" {
		return apperr.Validation("message must not be empty")
	}
	req.Context = sanitizeInput(req.Context)
	req.Translation = translationOr(req.Translation, "")
	req.Defaults(h.translation)

	resp, err := h.assistant.Chat(c.Request().Context(), key.ID, req)
	if err != nil {
		return err
	}
	middleware.SetTokensUsed(c, resp.Metadata.TokensUsed)
	return c.JSON(http.StatusOK, resp)
}

// History handles GET /chat/:conversationId
func (h *ChatHandler) History(c echo.Context) error {
	key, err := callerKey(c)
	if err != nil {
		return err
	}

	id := c.Param("conversationId")
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("conversation_id must be a valid UUID")
	}

	conv, err := h.assistant.History(c.Request().Context(), key.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conv)
}

// RegisterRoutes registers chat routes
func (h *ChatHandler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.POST("/chat", h.Chat, m...)
	g.GET("/chat/:conversationId", h.History, m...)
}
