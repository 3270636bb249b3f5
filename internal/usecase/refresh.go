package usecase

import (
	"context"
	"time"

	domrepo "EquityPulse/internal/domain/repository"
	domsvc "EquityPulse/internal/domain/service"
	pkgcache "EquityPulse/pkg/cache"
	"EquityPulse/pkg/logger"
	pkgqueue "EquityPulse/pkg/queue"
)

// MsgTypeAnalysisRefresh is the queue message type that asks a worker to
// regenerate one symbol's report.
const MsgTypeAnalysisRefresh = "analysis.refresh"

// One instance sweeps at a time. The TTL reclaims the lock if the
// holder dies mid-sweep.
const (
	refreshLockKey = "refresh:all"
	refreshLockTTL = 10 * time.Minute
)

// RefreshPayload travels on the queue for refresh jobs.
type RefreshPayload struct {
	Symbol string `json:"symbol"`
}

// RefreshUseCase keeps the local bar history current for the watch list
// and fans report regeneration out to queue workers.
type RefreshUseCase struct {
	bars        domsvc.BarSource
	store       domrepo.PriceStore
	queue       pkgqueue.QueueService
	locks       pkgcache.Service
	log         *logger.Logger
	symbols     []string
	benchmark   string
	historyDays int
}

func NewRefreshUseCase(
	bars domsvc.BarSource,
	store domrepo.PriceStore,
	queue pkgqueue.QueueService,
	locks pkgcache.Service,
	log *logger.Logger,
	symbols []string,
	benchmark string,
	historyDays int,
) *RefreshUseCase {
	if historyDays <= 0 {
		historyDays = 504
	}
	return &RefreshUseCase{
		bars:        bars,
		store:       store,
		queue:       queue,
		locks:       locks,
		log:         log,
		symbols:     symbols,
		benchmark:   benchmark,
		historyDays: historyDays,
	}
}

// RefreshAll updates bar history for every watched symbol plus the
// benchmark, then enqueues report regeneration per symbol. Failures are
// logged per symbol and never stop the sweep.
//
// When a lock service is configured, concurrent sweeps from other
// instances are skipped rather than duplicated. A lock check failure
// runs the sweep unguarded; refreshes are idempotent, so a duplicate
// beats a missed one.
func (uc *RefreshUseCase) RefreshAll(ctx context.Context) {
	if uc.locks != nil {
		ok, err := uc.locks.TryLock(ctx, refreshLockKey, refreshLockTTL)
		switch {
		case err != nil:
			uc.log.Warn("refresh lock check failed, running unguarded", logger.Error(err))
		case !ok:
			uc.log.Info("refresh already running on another instance, skipping")
			return
		default:
			defer func() { _ = uc.locks.Unlock(ctx, refreshLockKey) }()
		}
	}

	syms := uc.symbols
	if uc.benchmark != "" {
		syms = append(append([]string{}, uc.symbols...), uc.benchmark)
	}
	for _, sym := range syms {
		if err := uc.RefreshSymbol(ctx, sym); err != nil {
			uc.log.Warn("bar refresh failed",
				logger.String("symbol", sym), logger.Error(err))
		}
	}

	if uc.queue == nil {
		return
	}
	for _, sym := range uc.symbols {
		if err := uc.queue.PublishMessage(ctx, MsgTypeAnalysisRefresh, RefreshPayload{Symbol: sym}); err != nil {
			uc.log.Warn("refresh enqueue failed",
				logger.String("symbol", sym), logger.Error(err))
		}
	}
}

// RefreshSymbol downloads and stores the symbol's bar history.
func (uc *RefreshUseCase) RefreshSymbol(ctx context.Context, symbol string) error {
	bars, err := uc.bars.DailyBars(ctx, symbol, uc.historyDays)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}
	return uc.store.StoreBars(ctx, bars)
}

// ReportRefreshJob is the queue worker side of a refresh: it rebuilds
// the symbol's report, which also republishes the condensed signal.
type ReportRefreshJob struct {
	reports *ReportUseCase
	log     *logger.Logger
}

func NewReportRefreshJob(reports *ReportUseCase, log *logger.Logger) *ReportRefreshJob {
	return &ReportRefreshJob{reports: reports, log: log}
}

func (j *ReportRefreshJob) Name() string { return "report_refresh" }

func (j *ReportRefreshJob) Type() string { return MsgTypeAnalysisRefresh }

func (j *ReportRefreshJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := pkgqueue.ParsePayload[RefreshPayload](payload)
	if err != nil {
		return err
	}
	if _, err := j.reports.GetReport(ctx, GetReportParams{Symbol: p.Symbol}); err != nil {
		return err
	}
	j.log.Debug("report refreshed", logger.String("symbol", p.Symbol))
	return nil
}

var _ pkgqueue.Job = (*ReportRefreshJob)(nil)
