package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
)

// HeaderAPIKey is the alternative to an Authorization bearer token
const HeaderAPIKey = "X-API-Key"

// Authenticator resolves a presented API key
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.APIKey, error)
}

// RequireAPIKey rejects requests without a valid key and stores the key on the context.
func RequireAPIKey(auth Authenticator, log *logger.Logger) echo.MiddlewareFunc {
	log = log.With("middleware", "RequireAPIKey")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, err := auth.Authenticate(c.Request().Context(), extractAPIKey(c.Request()))
			if err != nil {
				if apperr.Status(err) >= http.StatusInternalServerError {
					log.Error("api key lookup failed", "path", c.Request().URL.Path, "error", err)
				} else {
					log.Debug("api key rejected", "path", c.Request().URL.Path, "reason", apperr.Message(err, ""))
				}
				return err
			}
			c.Set(apiKeyContextKey, key)
			return next(c)
		}
	}
}

func extractAPIKey(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.Header.Get(HeaderAPIKey))
}
