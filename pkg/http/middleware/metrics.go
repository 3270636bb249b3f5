package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	applogger "EquityPulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "equitypulse",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests served, by route and status",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "equitypulse",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time from dispatch to response",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method", "status", "class"},
	)

	httpInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "equitypulse",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently being handled",
		},
		[]string{"route", "method"},
	)

	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "equitypulse",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Body bytes written per response",
			Buckets:   []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
		},
		[]string{"route", "method", "status", "class"},
	)

	regOnce sync.Once
)

// Metrics records request count, latency, size, and in-flight gauge per
// route. The route label is echo's template ("/api/v1/analysis/score"),
// not the raw URL, which keeps cardinality bounded. Slow requests and
// 5xx outcomes also go to the logger when one is provided.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	regOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInFlight, httpResponseSize)
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method

			httpInFlight.WithLabelValues(route, method).Inc()
			start := time.Now()

			err := next(c)

			elapsed := time.Since(start)
			httpInFlight.WithLabelValues(route, method).Dec()

			code := responseStatus(c, err)
			status := strconv.Itoa(code)
			class := statusClass(code)
			size := int(c.Response().Size)

			httpRequestsTotal.WithLabelValues(route, method, status).Inc()
			httpRequestDuration.WithLabelValues(route, method, status, class).Observe(elapsed.Seconds())
			httpResponseSize.WithLabelValues(route, method, status, class).Observe(float64(size))

			if l != nil {
				switch {
				case code >= 500:
					l.Error("http request failed",
						applogger.String("route", route),
						applogger.String("method", method),
						applogger.String("status", status),
						applogger.Duration("duration_ms", elapsed),
						applogger.Int("bytes", size),
					)
				case slowThreshold > 0 && elapsed >= slowThreshold:
					l.Warn("http request slow",
						applogger.String("route", route),
						applogger.String("method", method),
						applogger.String("status", status),
						applogger.Duration("duration_ms", elapsed),
						applogger.Int("bytes", size),
					)
				}
			}
			return err
		}
	}
}

// responseStatus resolves the status that will actually be served. An
// error returned by the handler has not hit the error handler yet, so
// the committed response status is not authoritative in that case.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
