package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore over Redis using a
// fixed-window INCR+EXPIRE counter, so limits hold across multiple
// server instances. Redis errors fail open: availability of the feed
// endpoint matters more than exact limiting.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
// metrics may be nil.
func NewRedisRateLimitStore(client *redis.Client, metrics *Metrics) *RedisRateLimitStore {
	return &RedisRateLimitStore{
		client:  client,
		metrics: metrics,
	}
}

// Allow implements the RateLimitStore interface.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int) {
	redisKey := "ratelimit:" + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// NX keeps the window anchored at the first request of the window.
	pipe.ExpireNX(ctx, redisKey, config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.WarnContext(ctx, "rate limit redis error, failing open",
			"key", key,
			"error", err)
		if s.metrics != nil {
			s.metrics.IncRateLimitRedisErrors()
		}
		return true, 0
	}

	count := incr.Val()
	if count <= int64(config.RequestsPerWindow) {
		return true, 0
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = config.WindowDuration
	}
	retryAfter := int(ttl / time.Second)
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, retryAfter
}
