package usecase

import (
	"context"
	"fmt"
	"time"

	"EquityPulse/internal/domain/models"
	domrepo "EquityPulse/internal/domain/repository"
	domsvc "EquityPulse/internal/domain/service"
	"EquityPulse/internal/services/insider"
	"EquityPulse/internal/services/montecarlo"
	"EquityPulse/internal/services/scoring"
	"EquityPulse/internal/services/sentiment"
)

// AnalysisUseCase orchestrates the scoring, insider, sentiment, and
// projection engines over assembled snapshots.
type AnalysisUseCase struct {
	snapshots domsvc.SnapshotSource
	resolver  *scoring.Resolver
	evaluator *scoring.Evaluator
	detector  *insider.Detector
	cascade   *sentiment.Cascade
	simulator *montecarlo.Simulator
	metrics   domrepo.Metrics
}

func NewAnalysisUseCase(
	snapshots domsvc.SnapshotSource,
	resolver *scoring.Resolver,
	evaluator *scoring.Evaluator,
	detector *insider.Detector,
	cascade *sentiment.Cascade,
	simulator *montecarlo.Simulator,
	metrics domrepo.Metrics,
) *AnalysisUseCase {
	return &AnalysisUseCase{
		snapshots: snapshots,
		resolver:  resolver,
		evaluator: evaluator,
		detector:  detector,
		cascade:   cascade,
		simulator: simulator,
		metrics:   metrics,
	}
}

// Snapshot fetches the assembled engine input for one symbol.
func (uc *AnalysisUseCase) Snapshot(ctx context.Context, symbol string) (*models.StockDataSnapshot, error) {
	return uc.snapshots.Snapshot(ctx, symbol)
}

type ScoreParams struct {
	Symbol       string
	Sector       string
	Fundamentals *models.Fundamentals
	Technicals   *models.Technicals
}

// Score evaluates the composite score. Fundamentals and technicals not
// supplied inline come from the snapshot source.
func (uc *AnalysisUseCase) Score(ctx context.Context, p ScoreParams) (*models.ScoreResult, error) {
	start := time.Now()
	f, t, sector := p.Fundamentals, p.Technicals, p.Sector
	if f == nil || t == nil {
		snap, err := uc.snapshots.Snapshot(ctx, p.Symbol)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", p.Symbol, err)
		}
		if f == nil {
			f = &snap.Fundamentals
		}
		if t == nil {
			t = &snap.Technicals
		}
		if sector == "" {
			sector = snap.Sector
		}
	}
	res := uc.scoreWith(p.Symbol, sector, f, t)
	uc.metrics.RecordLatency("score", time.Since(start).Seconds())
	return res, nil
}

// ScoreSnapshot evaluates an already assembled snapshot.
func (uc *AnalysisUseCase) ScoreSnapshot(snap *models.StockDataSnapshot) *models.ScoreResult {
	return uc.scoreWith(snap.Symbol, snap.Sector, &snap.Fundamentals, &snap.Technicals)
}

func (uc *AnalysisUseCase) scoreWith(symbol, sector string, f *models.Fundamentals, t *models.Technicals) *models.ScoreResult {
	bench := uc.resolver.Resolve(sector)
	res := uc.evaluator.Evaluate(f, t, bench)
	res.Symbol = symbol
	uc.metrics.RecordEvaluation(string(res.Rating))
	for _, v := range res.AppliedVetos {
		uc.metrics.RecordVeto(v)
	}
	return &res
}

type InsiderParams struct {
	Symbol       string
	WindowDays   int
	LookbackDays int
}

// Insider detects trading patterns in the symbol's recent filings.
func (uc *AnalysisUseCase) Insider(ctx context.Context, p InsiderParams) (*models.InsiderSignal, error) {
	snap, err := uc.snapshots.Snapshot(ctx, p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("insider %s: %w", p.Symbol, err)
	}
	return uc.InsiderSnapshot(snap, p.WindowDays, p.LookbackDays), nil
}

// InsiderSnapshot runs detection over an already assembled snapshot.
func (uc *AnalysisUseCase) InsiderSnapshot(snap *models.StockDataSnapshot, windowDays, lookbackDays int) *models.InsiderSignal {
	var opts []insider.Option
	if windowDays > 0 {
		opts = append(opts, insider.WithWindowDays(windowDays))
	}
	if lookbackDays > 0 {
		opts = append(opts, insider.WithLookbackDays(lookbackDays))
	}
	sig := uc.detector.Detect(snap.InsiderTrades, opts...)
	return &sig
}

// Sentiment classifies the symbol's current headline tape.
func (uc *AnalysisUseCase) Sentiment(ctx context.Context, symbol string) (*models.SentimentResult, error) {
	snap, err := uc.snapshots.Snapshot(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("sentiment %s: %w", symbol, err)
	}
	return uc.SentimentSnapshot(ctx, snap), nil
}

// SentimentSnapshot classifies an already assembled snapshot's tape.
func (uc *AnalysisUseCase) SentimentSnapshot(ctx context.Context, snap *models.StockDataSnapshot) *models.SentimentResult {
	res := uc.cascade.Analyze(ctx, snap.Symbol, snap.Headlines)
	uc.metrics.RecordSentimentTier(res.SourceTier)
	if res.Cached {
		uc.metrics.RecordSentimentCache("hit")
	} else {
		uc.metrics.RecordSentimentCache("miss")
	}
	return &res
}

type ProjectionParams struct {
	Symbol  string
	Horizon int
	Paths   int
	Seed    *int64
	History int
}

// Projection runs the Monte Carlo price simulation for the symbol.
func (uc *AnalysisUseCase) Projection(ctx context.Context, p ProjectionParams) (*models.ProjectionResult, error) {
	snap, err := uc.snapshots.Snapshot(ctx, p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("projection %s: %w", p.Symbol, err)
	}
	return uc.ProjectionSnapshot(snap, p.Horizon, p.Paths, p.Seed, p.History)
}

// ProjectionSnapshot simulates from an already assembled snapshot.
func (uc *AnalysisUseCase) ProjectionSnapshot(snap *models.StockDataSnapshot, horizon, paths int, seed *int64, history int) (*models.ProjectionResult, error) {
	start := time.Now()
	closes := snap.Closes
	if history > 0 && len(closes) > history {
		closes = closes[len(closes)-history:]
	}
	var opts []montecarlo.Option
	if seed != nil {
		opts = append(opts, montecarlo.WithSeed(*seed))
	}
	res, err := uc.simulator.Simulate(closes, horizon, paths, opts...)
	if err != nil {
		uc.metrics.RecordError("projection")
		return nil, fmt.Errorf("projection %s: %w", snap.Symbol, err)
	}
	res.Symbol = snap.Symbol
	uc.metrics.RecordLatency("projection", time.Since(start).Seconds())
	return res, nil
}
