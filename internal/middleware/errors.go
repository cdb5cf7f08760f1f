package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/logger"
)

const internalErrorMessage = "An unexpected error occurred"

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
	Path       string    `json:"path"`
	RetryAfter int       `json:"retry_after,omitempty"`
	Details    string    `json:"details,omitempty"`
}

func newErrorResponse(c echo.Context, status int, message string) ErrorResponse {
	return ErrorResponse{
		Error:      http.StatusText(status),
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
		Path:       c.Request().URL.Path,
	}
}

// ErrorHandler maps handler errors onto ErrorResponse bodies. Internal error details are
// only included when development is set.
func ErrorHandler(log *logger.Logger, development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := classify(err)
		resp := newErrorResponse(c, status, message)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"error", err,
			)
			if development {
				resp.Details = err.Error()
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, resp)
		}
		if werr != nil {
			log.Error("failed to write error response", "error", werr)
		}
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, msg
	}

	status := apperr.Status(err)
	fallback := http.StatusText(status)
	if status >= http.StatusInternalServerError {
		fallback = internalErrorMessage
	}
	return status, apperr.Message(err, fallback)
}

func statusOf(err error) int {
	status, _ := classify(err)
	return status
}
