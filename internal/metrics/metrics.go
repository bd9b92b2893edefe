// Package metrics exposes the Prometheus collectors for the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lawchain", Name: "http_requests_total", Help: "Number of HTTP requests by method, path and status."},
		[]string{"method", "path", "status"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lawchain", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lawchain", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lawchain", Name: "ai_requests_total", Help: "Number of AI provider calls by operation and outcome."},
		[]string{"operation", "outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AIRequests)
}

// Handler returns the /metrics endpoint backed by its own registry.
func Handler() http.Handler {
	reg := prometheus.NewRegistry()
	RegisterCollectors(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
