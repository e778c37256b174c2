package di

import (
	"fmt"
	"time"

	"scalpd/internal/arbitrage"
	"scalpd/internal/domain/repository"
	"scalpd/internal/engine"
	"scalpd/internal/events"
	"scalpd/internal/market"
	mid "scalpd/internal/middleware"
	internalrepo "scalpd/internal/repository"
	"scalpd/internal/risk"
	"scalpd/internal/service/binance"
	"scalpd/internal/service/venue"
	"scalpd/internal/strategy"
	"scalpd/internal/usecase"
	pkgch "scalpd/pkg/clickhouse"
	"scalpd/pkg/config"
	pkgkafka "scalpd/pkg/kafka"
	applogger "scalpd/pkg/logger"
	"scalpd/pkg/metrics"
	"scalpd/pkg/server"
)

var _ repository.Metrics = (*metrics.Recorder)(nil)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideBus creates the in-process event bus.
func ProvideBus(l *applogger.Logger) *events.Bus {
	return events.NewBus(l)
}

// ProvideBuffer creates the market data buffer.
func ProvideBuffer(bus *events.Bus) *market.Buffer {
	return market.NewBuffer(bus)
}

// ProvideMetrics creates a Prometheus metrics recorder, or nil when metrics
// are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when analytics
// is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
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
	return client, nil
}

// ProvideAnalyticsSink creates the ClickHouse analytics sink.
func ProvideAnalyticsSink(ch *pkgch.Client, l *applogger.Logger) repository.AnalyticsSink {
	if ch == nil {
		return nil
	}
	sink := internalrepo.NewCHAnalyticsSink(ch)
	sink.SetLogger(l)
	return sink
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
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

// ProvideEventBridge creates the Kafka event bridge and attaches the error
// log aggregator to the same producer.
func ProvideEventBridge(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) *internalrepo.KafkaEventBridge {
	if producer == nil {
		return nil
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.Topic + ".logs",
		Publisher:      internalrepo.KafkaLogPublisher{Producer: producer},
	})
	return internalrepo.NewKafkaEventBridge(producer, cfg.Kafka.Topic, l)
}

// ProvideStateStore creates the Redis state store, or nil when disabled.
func ProvideStateStore(cfg *config.Config) repository.StateStore {
	if !cfg.Redis.Enabled {
		return nil
	}
	return internalrepo.NewRedisStateStore(internalrepo.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		StateKey: cfg.Redis.StateKey,
	})
}

// ProvideMarketData creates the Binance REST market data client.
func ProvideMarketData(cfg *config.Config, l *applogger.Logger) repository.MarketData {
	return binance.NewREST(cfg.Binance.RESTBaseURL, cfg.Binance.RequestTimeout, cfg.Binance.RetryMax, l)
}

// ProvideMarketStream creates the Binance kline WebSocket stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return binance.NewStream(
		cfg.Binance.WebSocketURL,
		cfg.Trading.Assets,
		repository.NormalizeTimeframe(cfg.Trading.Timeframe),
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
		l,
	)
}

// ProvideVenue creates the prediction-market venue client.
func ProvideVenue(cfg *config.Config, l *applogger.Logger) repository.Venue {
	return venue.NewClient(venue.Config{
		BaseURL:           cfg.Venue.BaseURL,
		APIKey:            cfg.Venue.APIKey,
		APISecret:         cfg.Venue.APISecret,
		Passphrase:        cfg.Venue.Passphrase,
		RequestTimeout:    cfg.Venue.RequestTimeout,
		HeartbeatInterval: cfg.Venue.HeartbeatInterval,
		RetryMax:          cfg.Venue.RetryMax,
		BackoffMin:        cfg.Venue.BackoffMin,
		BackoffMax:        cfg.Venue.BackoffMax,
		PriceCacheTTL:     cfg.Venue.PriceCacheTTL,
		OrdersPerSecond:   cfg.Venue.OrdersPerSecond,
	}, l)
}

// ProvideEnsemble creates the strategy ensemble with its weight tracker.
func ProvideEnsemble(cfg *config.Config, l *applogger.Logger) *strategy.Ensemble {
	tracker := strategy.NewTracker(
		strategy.NameEMACross,
		strategy.NameRSIReversal,
		strategy.NameBreakout,
		strategy.NameVWAPReversion,
		strategy.NameOrderFlow,
	)
	return strategy.NewEnsemble(tracker, cfg.Trading.MinConfidence, cfg.Trading.RequiredMajority, l)
}

// ProvideDetector creates the arbitrage detector.
func ProvideDetector(cfg *config.Config, l *applogger.Logger) *arbitrage.Detector {
	return arbitrage.NewDetector(arbitrage.Config{
		MinEdgePercent: cfg.Arbitrage.MinEdgePercent,
		MinConfidence:  cfg.Arbitrage.MinConfidence,
	}, l)
}

// ProvideRiskManager creates the risk manager.
func ProvideRiskManager(cfg *config.Config) *risk.Manager {
	return risk.NewManager(risk.Config{
		MaxPositionPercent:        cfg.Risk.MaxPositionPercent,
		MaxOpenPositions:          cfg.Risk.MaxOpenPositions,
		DailyLossLimitPercent:     cfg.Risk.DailyLossLimitPercent,
		MaxDrawdownPercent:        cfg.Risk.MaxDrawdownPercent,
		MaxTradesPerHour:          cfg.Risk.MaxTradesPerHour,
		MinConfidence:             cfg.Risk.MinConfidence,
		StopLossPercent:           cfg.Risk.StopLossPercent,
		ATRStopMultiplier:         cfg.Risk.ATRStopMultiplier,
		TrailingActivationPercent: cfg.Risk.TrailingActivationPercent,
		TrailingDistancePercent:   cfg.Risk.TrailingDistancePercent,
	}, cfg.Trading.StartBalance, time.Now().UTC())
}

// ProvideEngine creates the trading engine.
func ProvideEngine(
	cfg *config.Config,
	buffer *market.Buffer,
	ensemble *strategy.Ensemble,
	detector *arbitrage.Detector,
	riskMgr *risk.Manager,
	bus *events.Bus,
	marketData repository.MarketData,
	venueClient repository.Venue,
	sink repository.AnalyticsSink,
	store repository.StateStore,
	m repository.Metrics,
	l *applogger.Logger,
) *engine.Engine {
	return engine.New(engine.Config{
		Assets:                  cfg.Trading.Assets,
		Timeframe:               repository.NormalizeTimeframe(cfg.Trading.Timeframe),
		CycleInterval:           cfg.Trading.CycleInterval,
		MetricsInterval:         cfg.Trading.MetricsInterval,
		CycleTimeout:            cfg.Trading.CycleTimeout,
		WarmupCandles:           cfg.Trading.WarmupCandles,
		MinCandles:              cfg.Trading.MinCandles,
		StartBalance:            cfg.Trading.StartBalance,
		FiveMinuteMinConfidence: cfg.Trading.FiveMinute.MinConfidence,
		FiveMinuteMinEdge:       cfg.Trading.FiveMinute.MinEdgePercent,
	}, engine.Deps{
		Buffer:     buffer,
		Ensemble:   ensemble,
		Detector:   detector,
		Risk:       riskMgr,
		Bus:        bus,
		MarketData: marketData,
		Venue:      venueClient,
		Sink:       sink,
		Store:      store,
		Metrics:    m,
		Logger:     l,
	})
}

// ProvideCandleCollector creates the stream collector behind the validation
// pipeline.
func ProvideCandleCollector(
	stream repository.MarketStream,
	buffer *market.Buffer,
	m repository.Metrics,
) *usecase.CandleCollector {
	pipe := mid.NewStreamPipeline(market.NewIngestor(buffer), m,
		mid.WithMaxRPS(10),
		mid.WithBufferSize(1000),
	)
	return usecase.NewCandleCollector(stream, pipe, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	eng *engine.Engine,
	bus *events.Bus,
	buffer *market.Buffer,
	collector *usecase.CandleCollector,
	bridge *internalrepo.KafkaEventBridge,
	chClient *pkgch.Client,
	store repository.StateStore,
) *server.App {
	return server.New(cfg, l, eng, bus, buffer, collector, bridge, chClient, store)
}
