// Package metrics holds the Prometheus collectors shared across the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayRequests counts proxied calls by the Llm0-Status outcome
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm0_gateway_requests_total",
		Help: "Proxied calls by logging outcome (success, error, rejected)",
	}, []string{"outcome"})

	UpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "llm0_upstream_latency_seconds",
		Help:    "Time spent forwarding calls to the upstream provider",
		Buckets: prometheus.DefBuckets,
	})

	UpstreamStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm0_upstream_responses_total",
		Help: "Upstream responses by status class",
	}, []string{"class"})

	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm0_persist_failures_total",
		Help: "Failed request/response record inserts",
	}, []string{"kind"})

	DeferredQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "llm0_deferred_queue_depth",
		Help: "Background tasks waiting to run",
	})

	DeferredTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm0_deferred_tasks_total",
		Help: "Background tasks by result (ok, error, dropped)",
	}, []string{"result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm0_cache_lookups_total",
		Help: "Response cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	TokensUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm0_tokens_total",
		Help: "Tokens reported by upstream usage blocks, by model and kind (prompt, completion)",
	}, []string{"model", "kind"})

	IngestedLogs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm0_ingested_logs_total",
		Help: "Out-of-band log records accepted, by provider tag",
	}, []string{"provider"})
)

// StatusClass maps an HTTP status to "2xx", "4xx", ...
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
