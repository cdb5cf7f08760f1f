// Package cache is the advisory key-value layer in front of the verse store and the
// generation provider. A miss or a failed write never changes a result, only latency.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// TTL tiers.
const (
	TTLShort  = time.Minute
	TTLMedium = 5 * time.Minute
	TTLLong   = time.Hour
	TTLDay    = 24 * time.Hour
)

// ErrUnavailable is returned by counter operations when no backing store is reachable.
var ErrUnavailable = errors.New("cache unavailable")

// Cache is the capability the services depend on.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores value for ttl and reports whether the write succeeded.
	Set(ctx context.Context, key, value string, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
	// Incr atomically increments a counter, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) bool
	// TTL returns the remaining lifetime of key, or 0 when unknown.
	TTL(ctx context.Context, key string) time.Duration
	Keys(ctx context.Context, pattern string) []string
	Ping(ctx context.Context) error
	Close() error
}

// GetJSON decodes a cached JSON value into dst. Undecodable entries count as misses.
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

// SetJSON encodes value as JSON and stores it.
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return c.Set(ctx, key, string(raw), ttl)
}

// Noop is a Cache that stores nothing.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, string) (string, bool) { return "", false }
func (Noop) Set(context.Context, string, string, time.Duration) bool { return false }
func (Noop) Delete(context.Context, string) bool { return false }
func (Noop) Incr(context.Context, string) (int64, error) { return 0, ErrUnavailable }
func (Noop) Expire(context.Context, string, time.Duration) bool { return false }
func (Noop) TTL(context.Context, string) time.Duration { return 0 }
func (Noop) Keys(context.Context, string) []string { return nil }
func (Noop) Ping(context.Context) error { return ErrUnavailable }
func (Noop) Close() error { return nil }
