package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the Prometheus-backed implementation of the domain
// metrics contract. All series share the equitypulse_ prefix.
type Recorder struct {
	messagesSent   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	sentimentTiers *prometheus.CounterVec
	sentimentCache *prometheus.CounterVec
	evaluations    *prometheus.CounterVec
	vetoes         *prometheus.CounterVec
}

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

// New registers the recorder's collectors with the default registry.
func New() *Recorder {
	return &Recorder{
		messagesSent: counter("equitypulse_messages_sent_total",
			"Total number of messages sent to backend", "backend", "symbol"),
		errorsTotal: counter("equitypulse_errors_total",
			"Total number of errors encountered", "type"),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "equitypulse_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "equitypulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		sentimentTiers: counter("equitypulse_sentiment_tier_total",
			"Sentiment answers by winning cascade tier", "tier"),
		sentimentCache: counter("equitypulse_sentiment_cache_total",
			"Sentiment answers served from or past the cache", "outcome"),
		evaluations: counter("equitypulse_evaluations_total",
			"Composite score evaluations, by rating", "rating"),
		vetoes: counter("equitypulse_score_vetoes_total",
			"Score vetoes applied, by veto name", "veto"),
	}
}

func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordSentimentTier(tier string) {
	r.sentimentTiers.WithLabelValues(tier).Inc()
}

func (r *Recorder) RecordSentimentCache(outcome string) {
	r.sentimentCache.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordEvaluation(rating string) {
	r.evaluations.WithLabelValues(rating).Inc()
}

func (r *Recorder) RecordVeto(name string) {
	r.vetoes.WithLabelValues(name).Inc()
}
