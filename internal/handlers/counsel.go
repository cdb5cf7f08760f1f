package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/middleware"
	"github.com/sola-scriptura-chat-api/internal/models"
)

// CounselHandler handles pastoral guidance requests
type CounselHandler struct {
	assistant   Assistant
	translation string
}

// NewCounselHandler creates a new counsel handler
func NewCounselHandler(assistant Assistant, translation string) *CounselHandler {
	return &CounselHandler{assistant: assistant, translation: translation}
}

// Counsel handles POST /counsel
func (h *CounselHandler) Counsel(c echo.Context) error {
	var req models.CounselRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Situation = sanitizeInput(req.Situation)
	req.Category = sanitizeInput(req.Category)
	req.Denomination = sanitizeInput(req.Denomination)
	for i, issue := range req.SpecificIssues {
		req.SpecificIssues[i] = sanitizeInput(issue)
	}
	req.Translation = translationOr(req.Translation, h.translation)

	resp, err := h.assistant.Counsel(c.Request().Context(), req)
	if err != nil {
		return err
	}
	middleware.SetTokensUsed(c, resp.TokensUsed)
	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers the counsel route. Callers pass the tier gate in m.
func (h *CounselHandler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.POST("/counsel", h.Counsel, m...)
}
