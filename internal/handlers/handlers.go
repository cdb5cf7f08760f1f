package handlers

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/middleware"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/services"
)

// Assistant is the answer pipeline the chat, verse, daily, topic and counsel routes call into
type Assistant interface {
	Chat(ctx context.Context, apiKeyID int64, req models.ChatRequest) (*models.ChatResponse, error)
	History(ctx context.Context, apiKeyID int64, convID string) (*models.Conversation, error)
	Explain(ctx context.Context, req models.ExplainRequest) (*models.ExplainResponse, error)
	Daily(ctx context.Context, req models.DailyRequest) (*models.DailyResponse, error)
	Topics(ctx context.Context, limit int) (*models.TopicListResponse, error)
	Topic(ctx context.Context, req models.TopicRequest) (*models.TopicResponse, error)
	Counsel(ctx context.Context, req models.CounselRequest) (*models.CounselResponse, error)
}

// VerseLookup resolves references against the verse store
type VerseLookup interface {
	GetByReference(ctx context.Context, reference, translation string) (*models.Verse, error)
	GetRange(ctx context.Context, reference, translation string) ([]models.Verse, error)
}

// Searcher runs text, semantic and hybrid searches
type Searcher interface {
	SearchBible(ctx context.Context, p services.BibleSearch) ([]models.VerseWithRelevance, error)
	SemanticSearch(ctx context.Context, query string, topK int, translation string) ([]models.Citation, bool, error)
	HybridSearch(ctx context.Context, query string, verseLimit, topicLimit int, translation string) (*models.HybridSearchResponse, error)
}

var unsafeInput = regexp.MustCompile(`(?i)javascript:|\bon\w+=|[<>]`)

// sanitizeInput strips markup and script handlers from free text before it reaches a prompt
func sanitizeInput(s string) string {
	return strings.TrimSpace(unsafeInput.ReplaceAllString(s, ""))
}

// bind decodes the request into req and runs the registered validator over it
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return c.Validate(req)
}

// translationOr normalises a requested translation, using fallback when none was given
func translationOr(requested, fallback string) string {
	if requested == "" {
		return fallback
	}
	return strings.ToUpper(requested)
}

// pathValue undoes percent-encoding left in a path parameter
func pathValue(raw string) string {
	if v, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(raw)
}

func callerKey(c echo.Context) (*models.APIKey, error) {
	key := middleware.APIKey(c)
	if key == nil {
		return nil, apperr.Unauthorized("API key required")
	}
	return key, nil
}
