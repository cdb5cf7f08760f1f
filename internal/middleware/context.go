package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/models"
)

const (
	apiKeyContextKey     = "api_key"
	tokensUsedContextKey = "tokens_used"
)

// APIKey returns the key authenticated for this request, or nil on public routes
func APIKey(c echo.Context) *models.APIKey {
	key, _ := c.Get(apiKeyContextKey).(*models.APIKey)
	return key
}

// SetTokensUsed records the model tokens a handler spent so usage tracking can log them
func SetTokensUsed(c echo.Context, tokens int) {
	c.Set(tokensUsedContextKey, tokens)
}

func tokensUsed(c echo.Context) int {
	n, _ := c.Get(tokensUsedContextKey).(int)
	return n
}
