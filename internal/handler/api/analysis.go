package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	models "EquityPulse/internal/domain/models"
	domsvc "EquityPulse/internal/domain/service"
	icache "EquityPulse/internal/service/cache"
	"EquityPulse/internal/service/metrics"
	"EquityPulse/internal/service/ratelimit"
	"EquityPulse/internal/services/montecarlo"
	"EquityPulse/internal/usecase"
	pkgcache "EquityPulse/pkg/cache"
	xhttp "EquityPulse/pkg/http"
	xlogger "EquityPulse/pkg/logger"
	xutil "EquityPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// responseTTL bounds staleness of cached endpoint responses.
const responseTTL = 30 * time.Second

// HealthProbe reports whether one dependency is reachable.
type HealthProbe func(ctx context.Context) error

// AnalysisHandler exposes the scoring, insider, sentiment, projection,
// and report operations over HTTP.
type AnalysisHandler struct {
	logger   *xlogger.Logger
	analysis *usecase.AnalysisUseCase
	reports  *usecase.ReportUseCase
	bars     *usecase.BarsUseCase
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
	probes   map[string]HealthProbe
}

func NewAnalysisHandler(
	logger *xlogger.Logger,
	analysis *usecase.AnalysisUseCase,
	reports *usecase.ReportUseCase,
	bars *usecase.BarsUseCase,
) *AnalysisHandler {
	metrics.Register()
	return &AnalysisHandler{
		logger:   logger,
		analysis: analysis,
		reports:  reports,
		bars:     bars,
		rl:       ratelimit.New(),
	}
}

// SetCache injects a response cache. Without one every request recomputes.
func (h *AnalysisHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetHealthProbes installs the dependency checks /health reports.
func (h *AnalysisHandler) SetHealthProbes(probes map[string]HealthProbe) { h.probes = probes }

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api/v1")
	g.GET("/analysis/score", h.Score)
	g.POST("/analysis/score", h.Score)
	g.GET("/analysis/insider", h.Insider)
	g.GET("/analysis/sentiment", h.Sentiment)
	g.GET("/analysis/projection", h.Projection)
	g.GET("/analysis/report", h.Report)
	g.GET("/bars", h.Bars)
}

// Health pings each installed dependency probe. Any failing probe
// degrades the overall status; probe errors go to the log, not the
// public payload.
func (h *AnalysisHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(h.probes))
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			deps[name] = "down"
			status = "degraded"
			h.logger.Warn("health probe failed",
				xlogger.String("dep", name), xlogger.Error(err))
			continue
		}
		deps[name] = "ok"
	}

	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": status,
		"deps":   deps,
	})
}

func (h *AnalysisHandler) Score(c echo.Context) error {
	start := time.Now()
	endpoint := "score"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint, 5, 2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	// Inline fundamentals or technicals make the request caller-specific,
	// so only snapshot-backed evaluations go through the cache.
	inline := req.Fundamentals != nil || req.Technicals != nil
	cacheKey := pkgcache.GenerateKeyWithParams("score", xutil.NormalizeTicker(req.Symbol), strings.ToLower(req.Sector))
	if !inline {
		if done, err := h.fromCache(c, endpoint, cacheKey); done {
			return err
		}
	}

	res, err := h.analysis.Score(c.Request().Context(), usecase.ScoreParams{
		Symbol:       req.Symbol,
		Sector:       req.Sector,
		Fundamentals: req.Fundamentals,
		Technicals:   req.Technicals,
	})
	if err != nil {
		return h.engineError(c, endpoint, err)
	}
	if inline {
		return xhttp.SuccessResponse(c, res)
	}
	return h.respondCached(c, endpoint, cacheKey, res)
}

func (h *AnalysisHandler) Insider(c echo.Context) error {
	start := time.Now()
	endpoint := "insider"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.InsiderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint, 5, 2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := pkgcache.GenerateKeyWithParams("insider", xutil.NormalizeTicker(req.Symbol), req.WindowDays, req.LookbackDays)
	if done, err := h.fromCache(c, endpoint, cacheKey); done {
		return err
	}

	res, err := h.analysis.Insider(c.Request().Context(), usecase.InsiderParams{
		Symbol:       req.Symbol,
		WindowDays:   req.WindowDays,
		LookbackDays: req.LookbackDays,
	})
	if err != nil {
		return h.engineError(c, endpoint, err)
	}
	return h.respondCached(c, endpoint, cacheKey, res)
}

func (h *AnalysisHandler) Sentiment(c echo.Context) error {
	start := time.Now()
	endpoint := "sentiment"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.SentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint, 3, 1) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := pkgcache.GenerateKey("sentiment", xutil.NormalizeTicker(req.Symbol))
	if done, err := h.fromCache(c, endpoint, cacheKey); done {
		return err
	}

	res, err := h.analysis.Sentiment(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.engineError(c, endpoint, err)
	}
	return h.respondCached(c, endpoint, cacheKey, res)
}

func (h *AnalysisHandler) Projection(c echo.Context) error {
	start := time.Now()
	endpoint := "projection"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ProjectionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint, 3, 1) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	// Explicitly seeded runs are reproducibility checks; serving them
	// from the cache would hide the seed.
	cacheKey := pkgcache.GenerateKeyWithParams("projection", xutil.NormalizeTicker(req.Symbol), req.Horizon, req.Paths)
	if req.Seed == nil {
		if done, err := h.fromCache(c, endpoint, cacheKey); done {
			return err
		}
	}

	res, err := h.analysis.Projection(c.Request().Context(), usecase.ProjectionParams{
		Symbol:  req.Symbol,
		Horizon: req.Horizon,
		Paths:   req.Paths,
		Seed:    req.Seed,
		History: req.History,
	})
	if err != nil {
		return h.engineError(c, endpoint, err)
	}
	if req.Seed != nil {
		return xhttp.SuccessResponse(c, res)
	}
	return h.respondCached(c, endpoint, cacheKey, res)
}

func (h *AnalysisHandler) Report(c echo.Context) error {
	start := time.Now()
	endpoint := "report"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint, 3, 1) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := pkgcache.GenerateKeyWithParams("report", xutil.NormalizeTicker(req.Symbol), req.Horizon, req.Paths)
	if done, err := h.fromCache(c, endpoint, cacheKey); done {
		return err
	}

	res, err := h.reports.GetReport(c.Request().Context(), usecase.GetReportParams{
		Symbol:  req.Symbol,
		Horizon: req.Horizon,
		Paths:   req.Paths,
	})
	if err != nil {
		return h.engineError(c, endpoint, err)
	}
	return h.respondCached(c, endpoint, cacheKey, res)
}

func (h *AnalysisHandler) Bars(c echo.Context) error {
	start := time.Now()
	endpoint := "bars"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint, 5, 2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	res, err := h.bars.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol: req.Symbol,
		From:   xhttp.ParseTimeDefault(req.From, time.Time{}),
		To:     xhttp.ParseTimeDefault(req.To, time.Time{}),
		Limit:  req.Limit,
	})
	if err != nil {
		return h.engineError(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) allow(c echo.Context, endpoint string, capacity, refill float64) bool {
	if h.rl.Allow(c.RealIP()+":"+endpoint, capacity, refill) {
		return true
	}
	if h.logger != nil {
		h.logger.Warn("analysis."+endpoint+" rate_limited", xlogger.String("remote", c.RealIP()))
	}
	return false
}

// fromCache serves the cached response bytes when present. The bool
// reports whether the request was handled.
func (h *AnalysisHandler) fromCache(c echo.Context, endpoint, key string) (bool, error) {
	if h.cache == nil {
		return false, nil
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("analysis."+endpoint+" cache_get_error", xlogger.Error(err))
		}
		return false, nil
	}
	if !ok {
		metrics.AnalyticsCacheEvents.WithLabelValues(endpoint, "miss").Inc()
		if h.logger != nil {
			h.logger.Debug("analysis."+endpoint+" cache_miss", xlogger.String("key", key))
		}
		return false, nil
	}
	metrics.AnalyticsCacheEvents.WithLabelValues(endpoint, "hit").Inc()
	if h.logger != nil {
		h.logger.Debug("analysis."+endpoint+" cache_hit", xlogger.String("key", key))
	}
	return true, c.JSONBlob(http.StatusOK, b)
}

// respondCached marshals the standard response envelope once so cached
// and fresh replies are byte-identical.
func (h *AnalysisHandler) respondCached(c echo.Context, endpoint, key string, res interface{}) error {
	b, err := json.Marshal(&xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    res,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Error("analysis."+endpoint+" marshal_error", xlogger.Error(err))
		}
		return xhttp.InternalServerErrorResponse(c)
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(key, b, responseTTL); err != nil && h.logger != nil {
			h.logger.Warn("analysis."+endpoint+" cache_set_error", xlogger.Error(err))
		}
	}
	return c.JSONBlob(http.StatusOK, b)
}

// engineError translates engine failures into API errors.
func (h *AnalysisHandler) engineError(c echo.Context, endpoint string, err error) error {
	metrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
	if h.logger != nil {
		h.logger.Error("analysis."+endpoint+" error", xlogger.Error(err))
	}

	var insufficient *montecarlo.InsufficientHistoryError
	if errors.As(err, &insufficient) {
		appErr := xhttp.NewAppError(
			"ERR_INSUFFICIENT_HISTORY", "", insufficient.Error(), http.StatusUnprocessableEntity,
		).WithParam("observations", insufficient.Observations).
			WithParam("required", insufficient.Required)
		return xhttp.AppErrorResponse(c, appErr)
	}
	if errors.Is(err, domsvc.ErrNoData) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no upstream data for symbol").WithError(err))
	}
	return xhttp.AppErrorResponse(c, err)
}
