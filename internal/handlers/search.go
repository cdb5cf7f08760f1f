package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/models"
)

const (
	defaultSearchLimit = 10
	defaultTopicLimit  = 5
)

// SearchHandler handles search endpoints
type SearchHandler struct {
	search      Searcher
	translation string
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search Searcher, translation string) *SearchHandler {
	return &SearchHandler{
		search:      search,
		translation: translation,
	}
}

// SemanticSearch handles POST /search - semantic verse search
func (h *SearchHandler) SemanticSearch(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SemanticSearchRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}

	citations, fallback, err := h.search.SemanticSearch(ctx, req.Query, limit, translationOr(req.Translation, h.translation))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.SemanticSearchResponse{
		Query:    req.Query,
		Results:  citations,
		Fallback: fallback,
	})
}

// HybridSearch handles POST /search/hybrid - searches both verses and topics
func (h *SearchHandler) HybridSearch(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.HybridSearchRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	verseLimit := req.VerseLimit
	if verseLimit == 0 {
		verseLimit = defaultSearchLimit
	}
	topicLimit := req.TopicLimit
	if topicLimit == 0 {
		topicLimit = defaultTopicLimit
	}

	resp, err := h.search.HybridSearch(ctx, req.Query, verseLimit, topicLimit, translationOr(req.Translation, h.translation))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers search routes
func (h *SearchHandler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.POST("/search", h.SemanticSearch, m...)
	g.POST("/search/hybrid", h.HybridSearch, m...)
}
