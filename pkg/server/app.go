package server

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"EquityPulse/internal/usecase"
	pkgch "EquityPulse/pkg/clickhouse"
	"EquityPulse/pkg/config"
	xhttp "EquityPulse/pkg/http"
	pkgkafka "EquityPulse/pkg/kafka"
	applogger "EquityPulse/pkg/logger"
	pkgqueue "EquityPulse/pkg/queue"

	"github.com/robfig/cron/v3"
)

// schedulerDrain caps how long shutdown waits for in-flight cron jobs.
const schedulerDrain = 10 * time.Second

// App owns the process lifecycle: it brings up the ingest loops, the
// workers, and the HTTP server, then tears everything down in order
// when the process is told to exit. Any component may be nil; the app
// runs whatever it was given.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	collector   *usecase.QuoteCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	queue       *pkgqueue.RedisQueue
	scheduler   *cron.Cron
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	QuoteProc   *usecase.QuoteProcessor
}

func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	queue *pkgqueue.RedisQueue,
	scheduler *cron.Cron,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		queue:     queue,
		scheduler: scheduler,
	}
}

// SetHTTPHandler injects the route registrar after construction.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts every configured component and blocks until SIGINT or
// SIGTERM, then drains and returns.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := a.logger()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	)

	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("collector started", applogger.Strings("symbols", a.cfg.MarketData.Symbols))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
		}
	}

	if a.scheduler != nil {
		a.scheduler.Start()
		l.Info("scheduler started", applogger.String("spec", a.cfg.Scheduler.RefreshSpec))
	}

	// The HTTP server comes up last: once it answers, the background
	// loops are already running.
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	l.Info("shutdown signal received")

	// The signal cancelled ctx, which already stops the collector's
	// stream loop. The drain itself runs on a fresh context so the
	// remaining components get their full grace periods.
	return a.shutdown(context.Background())
}

// shutdown stops components in reverse of start order: sources of new
// work first, then servers, then sinks and clients.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger()
	l.Info("shutting down...")

	if a.scheduler != nil {
		done := a.scheduler.Stop()
		select {
		case <-done.Done():
		case <-time.After(schedulerDrain):
			l.Warn("scheduler jobs still running at shutdown")
		}
	}

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(stopCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.queue != nil {
		if err := a.queue.Stop(stopCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.QuoteProc != nil {
		a.QuoteProc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Flush aggregated error logs while the queue client is still
	// reachable. A detached logger keeps writing to stdout as usual.
	l.RemoveCollector()

	l.Info("shutdown complete")
	return nil
}

// logger returns the injected logger, or a console fallback so the
// lifecycle never runs silent.
func (a *App) logger() *applogger.Logger {
	if a.log != nil {
		return a.log
	}
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	return l
}
