package middleware

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/cache"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
)

// Rate limit response headers
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimits are requests allowed per window by tier
type RateLimits struct {
	Free    int
	Paid    int
	Premium int
}

// For returns the limit for a tier. Anonymous callers and unknown tiers get the free limit.
func (l RateLimits) For(t models.Tier) int {
	switch t {
	case models.TierPremium:
		return l.Premium
	case models.TierPaid:
		return l.Paid
	default:
		return l.Free
	}
}

// RateLimiter counts requests per key, or per client IP when unauthenticated, in fixed
// windows held in the cache.
type RateLimiter struct {
	cache  cache.Cache
	window time.Duration
	limits RateLimits
	log    *logger.Logger
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter. Requests pass unchecked while the cache is down.
func NewRateLimiter(c cache.Cache, window time.Duration, limits RateLimits, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		cache:  c,
		window: window,
		limits: limits,
		log:    log.With("middleware", "RateLimiter"),
		now:    time.Now,
	}
}

// Middleware enforces the limits
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject, limit := rl.subject(c)
			now := rl.now()
			windowSecs := max(int64(rl.window/time.Second), 1)
			slot := now.Unix() / windowSecs
			key := fmt.Sprintf("rate:%s:%d", subject, slot)
			reset := time.Unix((slot+1)*windowSecs, 0)

			ctx := c.Request().Context()
			count, err := rl.cache.Incr(ctx, key)
			if err != nil {
				if !errors.Is(err, cache.ErrUnavailable) {
					rl.log.Warn("rate limit check failed, allowing request", "key", key, "error", err)
				}
				return next(c)
			}
			switch {
			case count == 1:
				rl.cache.Expire(ctx, key, rl.window)
			case count == 2 && rl.cache.TTL(ctx, key) == 0:
				// the first hit's EXPIRE was lost; without it the slot key never goes away
				rl.cache.Expire(ctx, key, rl.window)
			}

			h := c.Response().Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(limit))
			h.Set(HeaderRateLimitRemaining, strconv.FormatInt(max(int64(limit)-count, 0), 10))
			h.Set(HeaderRateLimitReset, strconv.FormatInt(reset.Unix(), 10))

			if count > int64(limit) {
				retryAfter := int(math.Ceil(reset.Sub(now).Seconds()))
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				rl.log.Warn("rate limit exceeded", "subject", subject, "limit", limit)

				resp := newErrorResponse(c, http.StatusTooManyRequests,
					fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %s.", limit, windowLabel(rl.window)))
				resp.RetryAfter = retryAfter
				return c.JSON(http.StatusTooManyRequests, resp)
			}
			return next(c)
		}
	}
}

func (rl *RateLimiter) subject(c echo.Context) (string, int) {
	if key := APIKey(c); key != nil {
		return "key:" + strconv.FormatInt(key.ID, 10), rl.limits.For(key.Tier)
	}
	return "ip:" + c.RealIP(), rl.limits.Free
}

func windowLabel(d time.Duration) string {
	if d == time.Hour {
		return "hour"
	}
	return d.String()
}
