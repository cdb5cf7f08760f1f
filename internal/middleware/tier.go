package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/models"
)

// RequireTier rejects keys below the required tier. It must run after RequireAPIKey.
func RequireTier(required models.Tier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := APIKey(c)
			if key == nil {
				return apperr.Unauthorized("API key required")
			}
			if !key.Tier.Allows(required) {
				return apperr.Forbidden(fmt.Sprintf("This endpoint requires %s tier or higher", required))
			}
			return next(c)
		}
	}
}
