package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"EquityPulse/internal/domain/models"
	domrepo "EquityPulse/internal/domain/repository"
	"EquityPulse/pkg/logger"
)

// ReportUseCase assembles the full analysis report for one symbol: one
// snapshot fetch, then every engine section in parallel.
type ReportUseCase struct {
	analysis *AnalysisUseCase
	signals  domrepo.SignalPublisher
	log      *logger.Logger
	timeout  time.Duration
}

func NewReportUseCase(analysis *AnalysisUseCase, signals domrepo.SignalPublisher, log *logger.Logger) *ReportUseCase {
	return &ReportUseCase{analysis: analysis, signals: signals, log: log, timeout: 30 * time.Second}
}

type GetReportParams struct {
	Symbol  string
	Horizon int
	Paths   int
	Seed    *int64
}

// GetReport runs all four analysis sections. Sections fail
// independently; a section error lands in Errors instead of failing the
// report. Only the snapshot fetch itself is fatal.
func (uc *ReportUseCase) GetReport(ctx context.Context, p GetReportParams) (*models.AnalysisReport, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	snap, err := uc.analysis.Snapshot(ctx, p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", p.Symbol, err)
	}

	res := &models.AnalysisReport{
		Symbol:      p.Symbol,
		GeneratedAt: time.Now().UTC(),
		Errors:      map[string]string{},
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"score", uc.analysis.ScoreSnapshot(snap), nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"insider", uc.analysis.InsiderSnapshot(snap, 0, 0), nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"sentiment", uc.analysis.SentimentSnapshot(ctx, snap), nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.analysis.ProjectionSnapshot(snap, p.Horizon, p.Paths, p.Seed, 0)
		ch <- item{"projection", v, err}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch it.name {
		case "score":
			res.Score = it.val.(*models.ScoreResult)
		case "insider":
			res.Insider = it.val.(*models.InsiderSignal)
		case "sentiment":
			res.Sentiment = it.val.(*models.SentimentResult)
		case "projection":
			res.Projection = it.val.(*models.ProjectionResult)
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}

	uc.publish(ctx, res)
	return res, nil
}

// publish emits the condensed signal; failures are logged, never
// surfaced to the caller.
func (uc *ReportUseCase) publish(ctx context.Context, res *models.AnalysisReport) {
	if uc.signals == nil || res.Score == nil {
		return
	}
	ev := &models.SignalEvent{
		Symbol:       res.Symbol,
		FinalScore:   res.Score.FinalScore,
		Rating:       res.Score.Rating,
		AppliedVetos: res.Score.AppliedVetos,
		GeneratedAt:  res.GeneratedAt.Unix(),
	}
	if res.Insider != nil {
		ev.InsiderKind = string(res.Insider.Kind)
	}
	if res.Sentiment != nil {
		ev.SentimentLabel = string(res.Sentiment.Label)
	}
	if res.Projection != nil {
		ev.MedianProjection = res.Projection.P50
	}
	if err := uc.signals.PublishSignal(ctx, ev); err != nil {
		uc.log.Warn("signal publish failed",
			logger.String("symbol", res.Symbol), logger.Error(err))
	}
}
