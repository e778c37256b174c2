//go:build wireinject
// +build wireinject

package di

import (
	"scalpd/pkg/config"
	"scalpd/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideBus,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideAnalyticsSink,
		ProvideEventBridge,
		ProvideStateStore,
		ProvideMarketData,
		ProvideMarketStream,
		ProvideVenue,

		// Trading core
		ProvideBuffer,
		ProvideEnsemble,
		ProvideDetector,
		ProvideRiskManager,
		ProvideEngine,
		ProvideCandleCollector,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
