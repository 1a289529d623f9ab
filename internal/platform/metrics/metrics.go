// Package metrics exposes the engine's prometheus instrumentation.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Resolutions counts resolver invocations by entity kind.
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careops_resolutions_total",
		Help: "Status resolutions performed, by entity kind.",
	}, []string{"entity"})

	// AlertsGenerated counts alerts emitted per resolution pass.
	AlertsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careops_alerts_generated_total",
		Help: "Alerts generated by resolution passes, by severity.",
	}, []string{"severity"})

	// SweepDuration observes full-sweep wall time.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "careops_sweep_duration_seconds",
		Help:    "Duration of periodic resolution sweeps.",
		Buckets: prometheus.DefBuckets,
	})

	// SweepErrors counts entities that failed to resolve during sweeps.
	SweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careops_sweep_errors_total",
		Help: "Entities skipped during sweeps because resolution failed.",
	})

	// RateLimited counts requests rejected by the per-client rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careops_rate_limited_total",
		Help: "Requests rejected with 429 by the rate limiter.",
	})

	// CacheHits counts status cache hits and misses in the query layer.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careops_status_cache_requests_total",
		Help: "Status cache lookups, by outcome (hit or miss).",
	}, []string{"outcome"})
)

// Handler returns the /metrics endpoint in echo form.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
