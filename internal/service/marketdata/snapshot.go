package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"EquityPulse/internal/domain/models"
	drepo "EquityPulse/internal/domain/repository"
	domsvc "EquityPulse/internal/domain/service"
	"EquityPulse/internal/services/features"
	"EquityPulse/internal/services/insider"
	"EquityPulse/pkg/config"
	"EquityPulse/pkg/logger"
)

const defaultHistoryDays = 504

// SnapshotAssembler builds the per-ticker engine input from the vendor
// REST surfaces plus the local bar store.
type SnapshotAssembler struct {
	rest        *RESTClient
	bars        drepo.PriceStore
	log         *logger.Logger
	historyDays int
	benchmark   string
}

func NewSnapshotAssembler(rest *RESTClient, bars drepo.PriceStore, cfg *config.Config, log *logger.Logger) *SnapshotAssembler {
	days := cfg.Simulation.HistoryDays
	if days <= 0 {
		days = defaultHistoryDays
	}
	return &SnapshotAssembler{
		rest:        rest,
		bars:        bars,
		log:         log,
		historyDays: days,
		benchmark:   cfg.MarketData.BenchmarkSymbol,
	}
}

// Snapshot assembles fundamentals, technicals, headlines, insider
// filings, and close history for one symbol. Sections fetch
// concurrently into disjoint fields and degrade independently; the call
// fails only when every section does.
func (a *SnapshotAssembler) Snapshot(ctx context.Context, symbol string) (*models.StockDataSnapshot, error) {
	snap := &models.StockDataSnapshot{Symbol: symbol, AsOf: time.Now().UTC()}

	fails := make(chan struct{}, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		f, sector, err := a.rest.Fundamentals(ctx, symbol)
		if err != nil {
			a.log.Warn("snapshot: fundamentals unavailable",
				logger.String("symbol", symbol), logger.Error(err))
			fails <- struct{}{}
			return
		}
		snap.Fundamentals = *f
		snap.Sector = sector
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		heads, err := a.rest.Headlines(ctx, symbol, defaultHeadlineLimit)
		if err != nil {
			a.log.Warn("snapshot: headlines unavailable",
				logger.String("symbol", symbol), logger.Error(err))
			fails <- struct{}{}
			return
		}
		snap.Headlines = heads
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		trades, err := a.rest.InsiderTrades(ctx, symbol, insider.DefaultLookbackDays)
		if err != nil {
			a.log.Warn("snapshot: insider trades unavailable",
				logger.String("symbol", symbol), logger.Error(err))
			fails <- struct{}{}
			return
		}
		snap.InsiderTrades = trades
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		history := a.history(ctx, symbol)
		if len(history) == 0 {
			fails <- struct{}{}
			return
		}
		snap.Closes = features.Closes(history)
		if t := features.TechnicalsFromBars(history); t != nil {
			snap.Technicals = *t
		}
		a.attachBeta(ctx, snap)
	}()

	wg.Wait()
	close(fails)

	if len(fails) == cap(fails) {
		return nil, fmt.Errorf("snapshot %s: %w", symbol, domsvc.ErrNoData)
	}
	return snap, nil
}

// history prefers the local bar store and falls back to the vendor when
// the store is empty or unavailable.
func (a *SnapshotAssembler) history(ctx context.Context, symbol string) []models.Bar {
	if a.bars != nil {
		bars, err := a.bars.GetLatestBars(ctx, symbol, a.historyDays)
		if err != nil {
			a.log.Warn("snapshot: bar store read failed",
				logger.String("symbol", symbol), logger.Error(err))
		} else if len(bars) > 0 {
			return bars
		}
	}
	bars, err := a.rest.DailyBars(ctx, symbol, a.historyDays)
	if err != nil {
		a.log.Warn("snapshot: bar history unavailable",
			logger.String("symbol", symbol), logger.Error(err))
		return nil
	}
	return bars
}

func (a *SnapshotAssembler) attachBeta(ctx context.Context, snap *models.StockDataSnapshot) {
	if a.benchmark == "" || strings.EqualFold(a.benchmark, snap.Symbol) {
		return
	}
	bench := a.history(ctx, a.benchmark)
	if len(bench) == 0 {
		return
	}
	if beta, ok := features.BetaVsBenchmark(snap.Closes, features.Closes(bench)); ok {
		snap.Technicals.Beta = models.Float(beta)
		snap.Technicals.DerivedMetrics = append(snap.Technicals.DerivedMetrics, "beta")
	}
}

var _ domsvc.SnapshotSource = (*SnapshotAssembler)(nil)
