package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lawchain/api/internal/metrics"
)

// Redis is a coarse fixed-window limiter.
// Algorithm: INCR a per-window key and compare against
// allowed = floor(rps*windowSeconds)+burst. Deterministic across instances.
type Redis struct {
	client        *redis.Client
	windowSeconds int
	allowed       int
}

func NewRedis(redisURL string, rps float64, burst int, window time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisWithClient(client, rps, burst, window), nil
}

// NewRedisWithClient wraps an existing client, mainly for tests.
func NewRedisWithClient(client *redis.Client, rps float64, burst int, window time.Duration) *Redis {
	windowSeconds := int(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	return &Redis{
		client:        client,
		windowSeconds: windowSeconds,
		allowed:       int(rps*float64(windowSeconds)) + burst,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	bucket := time.Now().Unix() / int64(r.windowSeconds)
	redisKey := fmt.Sprintf("rl:%s:%d", key, bucket)

	cnt, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit incr: %w", err)
	}
	if cnt == 1 {
		_ = r.client.Expire(ctx, redisKey, time.Duration(r.windowSeconds+1)*time.Second).Err()
	}
	if int(cnt) > r.allowed {
		metrics.RateLimitRejected.WithLabelValues("redis").Inc()
		return false, time.Duration(r.windowSeconds) * time.Second, nil
	}
	metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
	return true, 0, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
