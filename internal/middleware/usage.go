package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/models"
)

// UsageRecorder accepts usage records without blocking
type UsageRecorder interface {
	Track(rec models.UsageRecord) bool
}

// TrackUsage reports every authenticated request to the recorder once the handler returns
func TrackUsage(recorder UsageRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			key := APIKey(c)
			if key == nil {
				return err
			}

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			recorder.Track(models.UsageRecord{
				APIKeyID:       key.ID,
				Endpoint:       c.Request().URL.Path,
				TokensUsed:     tokensUsed(c),
				ResponseTimeMs: time.Since(start).Milliseconds(),
				StatusCode:     status,
				CreatedAt:      start.UTC(),
			})
			return err
		}
	}
}
