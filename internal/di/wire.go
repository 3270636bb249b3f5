//go:build wireinject
// +build wireinject

package di

import (
	"EquityPulse/pkg/config"
	"EquityPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp builds the full dependency graph and returns the app.
// The body is a wire template; wire_gen.go holds the generated code.
func InitializeApp(cfg *config.Config) (*server.App, error) {
    wire.Build(
        // Ambient
        ProvideLogger,
        ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideQueueRedis,
		ProvideLockService,

		// Repositories (with business logic)
		ProvideQuoteStorage,
		ProvideQuotePublisher,
		ProvideSignalPublisher,
		ProvidePriceStore,
		ProvideMarketStream,

		// Market data services
		ProvideRESTClient,
		ProvideSnapshotSource,

		// Analysis engines
		ProvideBenchmarkResolver,
		ProvideEvaluator,
		ProvideInsiderDetector,
		ProvideSimulator,
		ProvideSentimentCache,
		ProvideSentimentCascade,

        // Use cases
        ProvideQuoteProcessor,
        ProvideQuoteCollector,
        ProvideKafkaQuotesHandler,
        ProvideAnalysisUseCase,
        ProvideReportUseCase,
        ProvideBarsUseCase,
        ProvideRefreshUseCase,

        // Background workers
        ProvideQueuePublisher,
        ProvideQueueConsumer,
        ProvideScheduler,

        // HTTP
        ProvideHTTPHandler,

        // Application server
        ProvideApp,
    )
    return &server.App{}, nil
}
