package di

import (
    "context"
    "errors"
    "fmt"
    "net"
    "strconv"
    "time"

    "EquityPulse/internal/domain/models"
    "EquityPulse/internal/domain/repository"
    domsvc "EquityPulse/internal/domain/service"
    "EquityPulse/internal/handler/api"
    mid "EquityPulse/internal/middleware"
    internalrepo "EquityPulse/internal/repository"
    icache "EquityPulse/internal/service/cache"
    "EquityPulse/internal/service/marketdata"
    "EquityPulse/internal/services/insider"
    "EquityPulse/internal/services/montecarlo"
    "EquityPulse/internal/services/scoring"
    "EquityPulse/internal/services/sentiment"
    "EquityPulse/internal/usecase"
    pkgcache "EquityPulse/pkg/cache"
    pkgch "EquityPulse/pkg/clickhouse"
    "EquityPulse/pkg/config"
    xhttp "EquityPulse/pkg/http"
    pkgkafka "EquityPulse/pkg/kafka"
    applogger "EquityPulse/pkg/logger"
    "EquityPulse/pkg/metrics"
    pkgqueue "EquityPulse/pkg/queue"
    "EquityPulse/pkg/server"
    xutil "EquityPulse/pkg/util"

    "github.com/redis/go-redis/v9"
    "github.com/robfig/cron/v3"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.rt_quotes_raw (ts DateTime, symbol String, price Float64, volume Float64, source String, event_id String, seq UInt64) ENGINE=MergeTree ORDER BY (symbol, ts)", db),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.daily_bars (symbol String, day Date, open Float64, high Float64, low Float64, close Float64, volume Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, day)", db),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideQuoteStorage creates ClickHouse storage repository.
func ProvideQuoteStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".rt_quotes_raw")
}

// ProvideQuotePublisher creates Kafka publisher repository.
func ProvideQuotePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSignalPublisher creates the analysis signal publisher. Without a
// signals topic reports stay HTTP-only.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if cfg.Kafka.SignalsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaQuotesHandler registers handler for the quotes topic.
func ProvideKafkaQuotesHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaQuotesHandler {
	return usecase.NewKafkaQuotesHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideMarketStream creates the vendor WebSocket stream.
func ProvideMarketStream(cfg *config.Config, log *applogger.Logger) repository.MarketStream {
	return marketdata.NewStream(
		cfg.MarketData.APIKey,
		cfg.MarketData.WebSocketURL,
		cfg.MarketData.Symbols,
		cfg.MarketData.ReconnectDelay,
		cfg.MarketData.PingInterval,
		log,
	)
}

// ProvideQuoteProcessor creates quote processor use case.
func ProvideQuoteProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.QuoteProcessor {
	return usecase.NewQuoteProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideQuoteCollector creates quote collector use case.
func ProvideQuoteCollector(
    stream repository.MarketStream,
    processor *usecase.QuoteProcessor,
    metrics repository.Metrics,
    cfg *config.Config,
) *usecase.QuoteCollector {
    maxRPS := cfg.Pipeline.MaxRPS
    if maxRPS <= 0 {
        maxRPS = 50
    }
    bufSize := cfg.Pipeline.BufferSize
    if bufSize <= 0 {
        bufSize = 2000
    }
    // Build middleware pipeline between WebSocket and the backend.
    // Vendor feeds are inconsistent about ticker casing, so symbols are
    // normalized on the way in.
    pipe := mid.NewRealtimePipeline(processor, metrics,
        mid.WithMaxRPS(maxRPS),
        mid.WithBufferSize(bufSize),
        mid.WithTransform(func(q *models.Quote) *models.Quote {
            q.Symbol = xutil.NormalizeTicker(q.Symbol)
            return q
        }),
    )
    return usecase.NewQuoteCollector(stream, processor, metrics, pipe)
}

// ProvideRESTClient creates the vendor REST client.
func ProvideRESTClient(cfg *config.Config, log *applogger.Logger) *marketdata.RESTClient {
	return marketdata.NewRESTClient(cfg, log)
}

// ProvidePriceStore creates the ClickHouse daily bar store.
func ProvidePriceStore(chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) repository.PriceStore {
	store := internalrepo.NewCHPriceStore(chClient, cfg.ClickHouse.Database+".daily_bars")
	store.SetLogger(log)
	return store
}

// ProvideSnapshotSource assembles per-symbol engine inputs.
func ProvideSnapshotSource(rest *marketdata.RESTClient, store repository.PriceStore, cfg *config.Config, log *applogger.Logger) domsvc.SnapshotSource {
	return marketdata.NewSnapshotAssembler(rest, store, cfg, log)
}

// ProvideBenchmarkResolver creates the sector benchmark resolver, with an
// optional catalog override from disk.
func ProvideBenchmarkResolver(cfg *config.Config) (*scoring.Resolver, error) {
	r := scoring.NewResolver()
	if cfg.Benchmarks.CatalogPath != "" {
		if err := r.LoadFile(cfg.Benchmarks.CatalogPath); err != nil {
			return nil, fmt.Errorf("benchmark catalog: %w", err)
		}
	}
	return r, nil
}

// ProvideEvaluator creates the composite score evaluator.
func ProvideEvaluator() *scoring.Evaluator {
	return scoring.NewEvaluator()
}

// ProvideInsiderDetector creates the insider pattern detector.
func ProvideInsiderDetector() *insider.Detector {
	return insider.NewDetector()
}

// ProvideSimulator creates the Monte Carlo simulator.
func ProvideSimulator() *montecarlo.Simulator {
	return montecarlo.NewSimulator()
}

// ProvideSentimentCache picks the sentiment cache backend. With Redis
// enabled it layers an in-process L1 over it; when Redis is unreachable
// the app degrades to memory-only instead of refusing to start.
func ProvideSentimentCache(cfg *config.Config, log *applogger.Logger) icache.BytesCache {
	if !cfg.Sentiment.Redis.Enabled {
		return icache.NewTTLCache()
	}
	host, port := splitHostPort(cfg.Sentiment.Redis.Addr, 6379)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Sentiment.Redis.Password),
		pkgcache.WithRedisDB(cfg.Sentiment.Redis.DB),
		pkgcache.WithRedisPool(16, 4, 30*time.Second),
		pkgcache.WithRedisPrefix("equitypulse:sentiment"),
	)
	if err != nil {
		log.Warn("sentiment redis unavailable, using in-memory cache", applogger.Error(err))
		return icache.NewTTLCache()
	}
	layered := pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(512))
	return icache.NewServiceCache(layered)
}

func splitHostPort(addr string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}

// ProvideSentimentCascade builds the tiered sentiment pipeline. The
// lexicon tier is always present so analysis never fails.
func ProvideSentimentCascade(cfg *config.Config, cache icache.BytesCache, log *applogger.Logger) *sentiment.Cascade {
	var providers []domsvc.SentimentProvider
	if cfg.Sentiment.PrescoredURL != "" {
		providers = append(providers, sentiment.NewPrescoredProvider(cfg))
	}
	if cfg.Sentiment.AnthropicAPIKey != "" {
		providers = append(providers, sentiment.NewReasoningProvider(cfg))
	}
	providers = append(providers, sentiment.NewLexiconProvider())

	return sentiment.NewCascade(cache, log, providers,
		sentiment.WithCacheTTL(cfg.Sentiment.CacheTTL),
		sentiment.WithTierTimeout(cfg.Sentiment.TierTimeout),
		sentiment.WithTotalBudget(cfg.Sentiment.TotalBudget),
	)
}

// ProvideAnalysisUseCase creates the analysis use case.
func ProvideAnalysisUseCase(
	snapshots domsvc.SnapshotSource,
	resolver *scoring.Resolver,
	evaluator *scoring.Evaluator,
	detector *insider.Detector,
	cascade *sentiment.Cascade,
	simulator *montecarlo.Simulator,
	metrics repository.Metrics,
) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(snapshots, resolver, evaluator, detector, cascade, simulator, metrics)
}

// ProvideReportUseCase creates the report use case.
func ProvideReportUseCase(analysis *usecase.AnalysisUseCase, signals repository.SignalPublisher, log *applogger.Logger) *usecase.ReportUseCase {
	return usecase.NewReportUseCase(analysis, signals, log)
}

// ProvideBarsUseCase creates the bars use case.
func ProvideBarsUseCase(store repository.PriceStore) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(store)
}

// ProvideQueueRedis creates the Redis client backing the work queue.
func ProvideQueueRedis(cfg *config.Config) *redis.Client {
	if !cfg.Queue.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.Addr,
		Password: cfg.Queue.Password,
		DB:       cfg.Queue.DB,
	})
}

// ProvideQueuePublisher creates the queue publisher used by scheduled
// refreshes. With Redis available it also hooks the logger's error
// aggregation up to a separate log list.
func ProvideQueuePublisher(client *redis.Client, log *applogger.Logger) pkgqueue.QueueService {
	if client == nil {
		return nil
	}
	logPub := pkgqueue.NewRedisPublisher(log, client, pkgqueue.WithKeyPrefix("equitypulse:logs"))
	log.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "error_logs",
		Publisher:      logPub,
	})
	return pkgqueue.NewRedisPublisher(log, client)
}

// ProvideQueueConsumer creates the queue consumer with registered jobs.
func ProvideQueueConsumer(cfg *config.Config, client *redis.Client, log *applogger.Logger, reports *usecase.ReportUseCase) *pkgqueue.RedisQueue {
	if client == nil {
		return nil
	}
	workers := cfg.Queue.Workers
	if workers <= 0 {
		workers = 4
	}
	qcfg := &pkgqueue.QueueConfig{
		Workers:    workers,
		QueueSize:  256,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
	}
	jobs := []pkgqueue.Job{usecase.NewReportRefreshJob(reports, log)}
	return pkgqueue.NewRedisConsumer(log, qcfg, client, jobs)
}

// ProvideLockService builds the shared lock backend for scheduled
// work. It piggybacks on the queue's Redis so locks are visible across
// instances; without Redis a process-local lock still stops overlapping
// sweeps within one instance.
func ProvideLockService(cfg *config.Config, log *applogger.Logger) pkgcache.Service {
	if !cfg.Queue.Enabled {
		return pkgcache.NewMemoryCache()
	}
	host, port := splitHostPort(cfg.Queue.Addr, 6379)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Queue.Password),
		pkgcache.WithRedisDB(cfg.Queue.DB),
		pkgcache.WithRedisPrefix("equitypulse:locks"),
	)
	if err != nil {
		log.Warn("lock redis unavailable, using process-local locks", applogger.Error(err))
		return pkgcache.NewMemoryCache()
	}
	return rc
}

// ProvideRefreshUseCase creates the bar refresh use case.
func ProvideRefreshUseCase(
	rest *marketdata.RESTClient,
	store repository.PriceStore,
	queue pkgqueue.QueueService,
	locks pkgcache.Service,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.RefreshUseCase {
	return usecase.NewRefreshUseCase(
		rest,
		store,
		queue,
		locks,
		log,
		cfg.MarketData.Symbols,
		cfg.MarketData.BenchmarkSymbol,
		cfg.Simulation.HistoryDays,
	)
}

// ProvideScheduler creates the cron scheduler driving history refreshes.
func ProvideScheduler(cfg *config.Config, refresh *usecase.RefreshUseCase) (*cron.Cron, error) {
	if !cfg.Scheduler.Enabled || cfg.Scheduler.RefreshSpec == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(cfg.Scheduler.RefreshSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		refresh.RefreshAll(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler spec: %w", err)
	}
	return c, nil
}

// ProvideHTTPHandler creates the analysis HTTP handler with a local
// response cache and the dependency probes behind /health.
func ProvideHTTPHandler(
	log *applogger.Logger,
	analysis *usecase.AnalysisUseCase,
	reports *usecase.ReportUseCase,
	bars *usecase.BarsUseCase,
	chClient *pkgch.Client,
	collector *usecase.QuoteCollector,
	qredis *redis.Client,
) xhttp.Handler {
	h := api.NewAnalysisHandler(log, analysis, reports, bars)
	h.SetCache(icache.NewTTLCache())
	h.SetHealthProbes(healthProbes(chClient, collector, qredis))
	return h
}

// healthProbes builds one probe per component this deployment runs.
func healthProbes(chClient *pkgch.Client, collector *usecase.QuoteCollector, qredis *redis.Client) map[string]api.HealthProbe {
	probes := map[string]api.HealthProbe{
		"clickhouse": chClient.Health,
	}
	if qredis != nil {
		probes["redis"] = func(ctx context.Context) error {
			return qredis.Ping(ctx).Err()
		}
	}
	if collector != nil {
		probes["stream"] = func(context.Context) error {
			if !collector.IsConnected() {
				return errors.New("stream disconnected")
			}
			return nil
		}
	}
	return probes
}

// ProvideApp creates the application server.
func ProvideApp(
    cfg *config.Config,
    log *applogger.Logger,
    collector *usecase.QuoteCollector,
    consumer *pkgkafka.Consumer,
    kh *usecase.KafkaQuotesHandler,
    chClient *pkgch.Client,
    queue *pkgqueue.RedisQueue,
    scheduler *cron.Cron,
    handler xhttp.Handler,
) *server.App {
    if consumer != nil {
        consumer.WithConsumerHook(pkgkafka.LoggingHook{Log: log})
    }
    app := server.New(cfg, log, collector, consumer, kh, chClient, queue, scheduler)
    app.SetHTTPHandler(handler)
    // attach quote processor to app for closing resources via collector
    if collector != nil {
        app.QuoteProc = collector.Processor()
    }
    return app
}
