package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/middleware"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/scripture"
	"github.com/sola-scriptura-chat-api/internal/services"
)

// VerseHandler handles verse lookup, search and explanation
type VerseHandler struct {
	assistant   Assistant
	verses      VerseLookup
	search      Searcher
	translation string
}

// NewVerseHandler creates a new verse handler
func NewVerseHandler(assistant Assistant, verses VerseLookup, search Searcher, translation string) *VerseHandler {
	return &VerseHandler{
		assistant:   assistant,
		verses:      verses,
		search:      search,
		translation: translation,
	}
}

// Explain handles POST /verses/explain
func (h *VerseHandler) Explain(c echo.Context) error {
	var req models.ExplainRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Translation = translationOr(req.Translation, "")
	req.Defaults(h.translation)

	resp, err := h.assistant.Explain(c.Request().Context(), req)
	if err != nil {
		return err
	}
	middleware.SetTokensUsed(c, resp.TokensUsed)
	return c.JSON(http.StatusOK, resp)
}

// Search handles GET /verses/search. Both query and q are accepted.
func (h *VerseHandler) Search(c echo.Context) error {
	var req models.VerseSearchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid query parameters")
	}
	if req.Query == "" {
		req.Query = req.Q
	}
	req.Query = sanitizeInput(req.Query)
	if err := c.Validate(&req); err != nil {
		return err
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}

	results, err := h.search.SearchBible(c.Request().Context(), services.BibleSearch{
		Query:       req.Query,
		Book:        req.Book,
		Testament:   req.Testament,
		Translation: translationOr(req.Translation, h.translation),
		Limit:       limit,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.VerseSearchResponse{
		Query:   req.Query,
		Results: results,
		Count:   len(results),
	})
}

// Range handles GET /verses/range/:reference
func (h *VerseHandler) Range(c echo.Context) error {
	req, err := h.lookupRequest(c)
	if err != nil {
		return err
	}

	verses, err := h.verses.GetRange(c.Request().Context(), req.Reference, req.Translation)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.VerseRangeResponse{
		Reference: req.Reference,
		Verses:    verses,
		Count:     len(verses),
	})
}

// Get handles GET /verses/:reference
func (h *VerseHandler) Get(c echo.Context) error {
	req, err := h.lookupRequest(c)
	if err != nil {
		return err
	}

	verse, err := h.verses.GetByReference(c.Request().Context(), req.Reference, req.Translation)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.VerseWithReference{
		Verse:     *verse,
		Reference: verse.Ref(),
	})
}

func (h *VerseHandler) lookupRequest(c echo.Context) (models.VerseLookupRequest, error) {
	var req models.VerseLookupRequest
	if err := bind(c, &req); err != nil {
		return req, err
	}
	req.Reference = pathValue(req.Reference)
	if !scripture.IsReferenceShaped(req.Reference) {
		return req, apperr.Validation("Invalid verse reference format")
	}
	req.Translation = translationOr(req.Translation, h.translation)
	return req, nil
}

// RegisterRoutes registers verse routes. The static segments precede the catch-all reference.
func (h *VerseHandler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.POST("/verses/explain", h.Explain, m...)
	g.GET("/verses/search", h.Search, m...)
	g.GET("/verses/range/:reference", h.Range, m...)
	g.GET("/verses/:reference", h.Get, m...)
}
