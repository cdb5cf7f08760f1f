package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/logger"
)

// RequestLogger logs one line per request. Handler errors are passed to the echo error
// handler first so the logged status is the one sent.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []interface{}{
				"method", strings.ToUpper(req.Method),
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", c.RealIP(),
			}
			if id := res.Header().Get(echo.HeaderXRequestID); id != "" {
				fields = append(fields, "request_id", id)
			}
			if key := APIKey(c); key != nil {
				fields = append(fields, "key_id", key.ID)
			}

			switch {
			case res.Status >= 500:
				log.Error("HTTP request", fields...)
			case res.Status >= 400:
				log.Warn("HTTP request", fields...)
			default:
				log.Info("HTTP request", fields...)
			}
			return nil
		}
	}
}
