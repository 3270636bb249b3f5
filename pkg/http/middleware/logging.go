package middleware

import (
	"time"

	applogger "EquityPulse/pkg/logger"

	"github.com/labstack/echo/v4"
	zlog "github.com/rs/zerolog/log"
)

// RequestLogging emits one access line per request. With a nil logger
// it falls back to the zerolog global so requests are never silent.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			latency := time.Since(start)
			status := c.Response().Status
			if l != nil {
				l.Info("http request",
					applogger.String("method", req.Method),
					applogger.String("uri", req.RequestURI),
					applogger.String("remote", req.RemoteAddr),
					applogger.Int("status", status),
					applogger.Duration("latency_ms", latency),
				)
			} else {
				zlog.Info().
					Str("method", req.Method).
					Str("uri", req.RequestURI).
					Str("remote", req.RemoteAddr).
					Int("status", status).
					Dur("latency", latency).
					Msg("http request")
			}
			return err
		}
	}
}
