package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sola-scriptura-chat-api/internal/logger"
)

// Redis implements Cache on a go-redis client. Failures are logged and reported as misses.
type Redis struct {
	log *logger.Logger
	rdb *goredis.Client
}

var _ Cache = (*Redis)(nil)

// NewRedis connects to the Redis server at url ("redis://host:port/db") and pings it.
func NewRedis(ctx context.Context, url string, dialTimeout time.Duration, log *logger.Logger) (*Redis, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if dialTimeout > 0 {
		opts.DialTimeout = dialTimeout
	}

	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisFromClient(rdb, log), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rdb *goredis.Client, log *logger.Logger) *Redis {
	return &Redis{log: log.With("service", "RedisCache"), rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false
	}
	if err != nil {
		r.log.Warn("cache get failed", "key", key, "error", err)
		return "", false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		r.log.Warn("cache set failed", "key", key, "error", err)
		return false
	}
	return true
}

func (r *Redis) Delete(ctx context.Context, key string) bool {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		r.log.Warn("cache delete failed", "key", key, "error", err)
		return false
	}
	return true
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := r.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		r.log.Warn("cache expire failed", "key", key, "error", err)
		return false
	}
	return ok
}

func (r *Redis) TTL(ctx context.Context, key string) time.Duration {
	d, err := r.rdb.TTL(ctx, key).Result()
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Keys walks the keyspace with SCAN rather than blocking the server with KEYS.
func (r *Redis) Keys(ctx context.Context, pattern string) []string {
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			r.log.Warn("cache scan failed", "pattern", pattern, "error", err)
			return out
		}
		out = append(out, keys...)
		if next == 0 {
			return out
		}
		cursor = next
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
