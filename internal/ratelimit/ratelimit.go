// Package ratelimit guards the AI endpoints against bursts. Two backends:
// an in-memory token bucket per key, and a Redis fixed window for
// multi-instance deployments.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lawchain/api/internal/metrics"
)

// Limiter reports whether the request identified by key may proceed.
// retryAfter is the suggested client backoff when ok is false.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// Memory is a per-key token-bucket limiter.
type Memory struct {
	rps      float64
	burst    int
	limiters sync.Map // map[string]*rate.Limiter
}

func NewMemory(rps float64, burst int) *Memory {
	return &Memory{rps: rps, burst: burst}
}

func (m *Memory) limiter(key string) *rate.Limiter {
	v, ok := m.limiters.Load(key)
	if ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Limit(m.rps), m.burst)
	actual, _ := m.limiters.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}

func (m *Memory) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if !m.limiter(key).Allow() {
		metrics.RateLimitRejected.WithLabelValues("memory").Inc()
		return false, time.Second, nil
	}
	metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
	return true, 0, nil
}
