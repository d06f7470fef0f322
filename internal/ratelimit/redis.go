package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// RedisConfig holds connection parameters for the Redis backend.
type RedisConfig struct {
	Addrs    []string
	Password string
}

// OpenRedis creates the shared rueidis client for Redis-backed limiters.
// The caller owns the client and closes it on shutdown.
func OpenRedis(cfg RedisConfig) (rueidis.Client, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Redis is a fixed-window limiter: one counter per key per window,
// shared by every replica talking to the same Redis. Backend failures
// fail open so a Redis outage never blocks traffic.
type Redis struct {
	client rueidis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewRedis creates a Redis limiter allowing limit requests per window
// for each key.
func NewRedis(client rueidis.Client, limit int, window time.Duration, logger *zap.Logger) *Redis {
	return &Redis{client: client, limit: limit, window: window, logger: logger}
}

// Allow increments the key's counter for the current window and compares
// it against the limit.
func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()
	win := now.UnixNano() / int64(r.window)
	counterKey := fmt.Sprintf("ratelimit:%s:%d", key, win)

	incr := r.client.B().Incr().Key(counterKey).Build()
	count, err := r.client.Do(ctx, incr).AsInt64()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, 0, ctxErr
		}
		r.logger.Warn("rate limit backend unavailable, allowing request", zap.Error(err))
		return true, 0, nil
	}

	if count == 1 {
		// NX keeps a delayed retry of the first INCR from extending the
		// counter's lifetime.
		expire := r.client.B().Expire().Key(counterKey).Seconds(int64((2 * r.window).Seconds())).Nx().Build()
		if err := r.client.Do(ctx, expire).Error(); err != nil {
			r.logger.Warn("rate limit expire failed", zap.String("key", counterKey), zap.Error(err))
		}
	}

	if count > int64(r.limit) {
		retryAfter := time.Duration(win+1)*r.window - time.Duration(now.UnixNano())
		return false, retryAfter, nil
	}
	return true, 0, nil
}
