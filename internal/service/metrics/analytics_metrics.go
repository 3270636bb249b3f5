package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalyticsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "equitypulse",
			Subsystem: "analysis",
			Name:      "latency_seconds",
			Help:      "Latency of analysis endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	AnalyticsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "equitypulse",
			Subsystem: "analysis",
			Name:      "errors_total",
			Help:      "Errors by analysis endpoint",
		},
		[]string{"endpoint"},
	)

	AnalyticsCacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "equitypulse",
			Subsystem: "analysis",
			Name:      "cache_events_total",
			Help:      "Response cache lookups by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)
)

// Register installs the analysis collectors once. Handlers call it
// from their constructors, so repeated construction is safe.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalyticsLatency, AnalyticsErrors, AnalyticsCacheEvents)
	})
}
