package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"EquityPulse/pkg/http/middleware"
	"EquityPulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig holds the listen address, timeouts, and middleware
// toggles.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORS            bool
	Logger          *logger.Logger
}

// ServerOption adjusts ServerConfig.
type ServerOption func(*ServerConfig)

// WithHost sets the bind host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) { c.Host = host }
}

// WithPort sets the listen port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) { c.Port = port }
}

// WithTimeouts sets read, write, and shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithCORS toggles the CORS middleware.
func WithCORS(enabled bool) ServerOption {
	return func(c *ServerConfig) { c.CORS = enabled }
}

// WithLogger routes server lifecycle messages through the app logger.
func WithLogger(l *logger.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = l }
}

// Server wraps an echo instance with lifecycle management.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
}

func defaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORS:            true,
	}
}

// openCORS admits any origin with the standard method set. The API
// serves read-mostly analytics, so there is nothing to protect from
// cross-origin reads.
func openCORS() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType,
			echo.HeaderAccept, echo.HeaderAuthorization,
		},
	}
}

// NewServer assembles the echo instance: recovery and request logging
// always on, CORS when enabled, the handler's routes, and a /metrics
// endpoint for Prometheus scrapes.
func NewServer(handler Handler, opts ...ServerOption) *Server {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(cfg.Logger))
	e.Use(middleware.RequestLogging(cfg.Logger))
	e.Use(middleware.Metrics(cfg.Logger, time.Second))
	if cfg.CORS {
		e.Use(middleware.CORS(openCORS()))
	}

	if handler != nil {
		handler.RegisterRoutes(e)
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{echo: e, config: cfg}
}

// Start begins serving in the background and returns immediately.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	go func() {
		s.logInfo("http server listening", logger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logError("http server failed", logger.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight requests. The configured shutdown timeout
// applies on top of whatever deadline ctx already carries.
func (s *Server) Stop(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logInfo("http server stopped")
	return nil
}

func (s *Server) logInfo(msg string, fields ...logger.Field) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, fields...)
	}
}

func (s *Server) logError(msg string, fields ...logger.Field) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, fields...)
	}
}
