package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"EquityPulse/internal/domain/models"
	domsvc "EquityPulse/internal/domain/service"
	svccache "EquityPulse/internal/service/cache"
	"EquityPulse/pkg/logger"
	xutil "EquityPulse/pkg/util"
)

const (
	DefaultCacheTTL    = 15 * time.Minute
	DefaultTierTimeout = 3 * time.Second
	DefaultTotalBudget = 8 * time.Second

	// minRemoteBudget is the least remaining budget worth spending on a
	// remote tier before skipping straight to a cheaper one.
	minRemoteBudget = 250 * time.Millisecond
)

var errEmptyResult = errors.New("provider returned no result")

// CascadeOption tunes the cascade.
type CascadeOption func(*Cascade)

func WithCacheTTL(ttl time.Duration) CascadeOption {
	return func(c *Cascade) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithTierTimeout(d time.Duration) CascadeOption {
	return func(c *Cascade) {
		if d > 0 {
			c.tierTimeout = d
		}
	}
}

func WithTotalBudget(d time.Duration) CascadeOption {
	return func(c *Cascade) {
		if d > 0 {
			c.totalBudget = d
		}
	}
}

// Cascade tries sentiment providers in priority order. Tier failures are
// never surfaced: the caller always gets a result, worst case from the
// local lexicon floor. Providers are ordered most preferred first, with
// the final tier expected to be local and effectively free.
type Cascade struct {
	providers   []domsvc.SentimentProvider
	cache       svccache.BytesCache
	log         *logger.Logger
	ttl         time.Duration
	tierTimeout time.Duration
	totalBudget time.Duration
}

func NewCascade(cache svccache.BytesCache, log *logger.Logger, providers []domsvc.SentimentProvider, opts ...CascadeOption) *Cascade {
	c := &Cascade{
		providers:   providers,
		cache:       cache,
		log:         log,
		ttl:         DefaultCacheTTL,
		tierTimeout: DefaultTierTimeout,
		totalBudget: DefaultTotalBudget,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Analyze returns the best available sentiment for the symbol. Provider
// errors, timeouts, and a spent total budget all degrade through the
// tiers; a cache hit on any tier returns without invoking a provider.
func (c *Cascade) Analyze(ctx context.Context, symbol string, headlines []models.Headline) models.SentimentResult {
	deadline := time.Now().Add(c.totalBudget)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for i, p := range c.providers {
		if res, ok := c.cached(symbol, p.Tier()); ok {
			return res
		}
		remote := i < len(c.providers)-1
		if remote && time.Until(deadline) < minRemoteBudget {
			c.log.Debug("sentiment budget spent, skipping tier",
				logger.String("symbol", symbol), logger.String("tier", p.Tier()))
			continue
		}

		tierCtx, tierCancel := context.WithTimeout(ctx, c.tierTimeout)
		res, err := p.Analyze(tierCtx, symbol, headlines)
		tierCancel()
		if err != nil || res == nil {
			if err == nil {
				err = errEmptyResult
			}
			c.log.Debug("sentiment tier failed",
				logger.String("symbol", symbol), logger.String("tier", p.Tier()), logger.Error(err))
			continue
		}

		out := *res
		out.Symbol = symbol
		out.SourceTier = p.Tier()
		applySpin(&out, headlines)
		c.store(symbol, p.Tier(), out)
		return out
	}

	// Reached only when no lexicon tier is registered.
	return models.SentimentResult{
		Symbol:     symbol,
		Label:      models.SentimentNeutral,
		SourceTier: models.TierLexicon,
		Confidence: 0.2,
	}
}

func cacheKey(symbol, tier string) string {
	return fmt.Sprintf("sentiment:%s:%s", xutil.NormalizeTicker(symbol), tier)
}

func (c *Cascade) cached(symbol, tier string) (models.SentimentResult, bool) {
	var res models.SentimentResult
	if c.cache == nil {
		return res, false
	}
	raw, ok, err := c.cache.GetBytes(cacheKey(symbol, tier))
	if err != nil || !ok {
		return res, false
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, false
	}
	res.Cached = true
	return res, true
}

func (c *Cascade) store(symbol, tier string, res models.SentimentResult) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.cache.SetBytes(cacheKey(symbol, tier), raw, c.ttl); err != nil {
		c.log.Debug("sentiment cache write failed",
			logger.String("symbol", symbol), logger.String("tier", tier), logger.Error(err))
	}
}
