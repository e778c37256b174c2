package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"scalpd/internal/engine"
	"scalpd/internal/events"
	"scalpd/internal/handler/api"
	"scalpd/internal/market"
	"scalpd/internal/repository"
	"scalpd/internal/usecase"
	pkgch "scalpd/pkg/clickhouse"
	"scalpd/pkg/config"
	xhttp "scalpd/pkg/http"
	applogger "scalpd/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	eng       *engine.Engine
	bus       *events.Bus
	buffer    *market.Buffer
	collector *usecase.CandleCollector
	bridge    *repository.KafkaEventBridge
	chClient  *pkgch.Client
	store     interface{ Close() error }

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	eng *engine.Engine,
	bus *events.Bus,
	buffer *market.Buffer,
	collector *usecase.CandleCollector,
	bridge *repository.KafkaEventBridge,
	chClient *pkgch.Client,
	store interface{ Close() error },
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		eng:       eng,
		bus:       bus,
		buffer:    buffer,
		collector: collector,
		bridge:    bridge,
		chClient:  chClient,
		store:     store,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := api.NewControlEchoHandler(a.logger, a.eng, a.buffer)
	a.httpServer = xhttp.NewServer(handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.bridge != nil {
		a.bridge.Start(ctx, a.bus)
		a.logger.Info("kafka event bridge started", applogger.String("topic", a.cfg.Kafka.Topic))
	}

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			// Live stream is an accelerator; REST polling inside the cycle
			// still feeds the buffer without it.
			a.logger.Warn("candle stream unavailable, REST polling only", applogger.Error(err))
		} else {
			a.logger.Info("candle stream started", applogger.Strings("assets", a.cfg.Trading.Assets))
		}
	}

	if err := a.eng.Start(ctx); err != nil {
		a.logger.Error("engine start failed", applogger.Error(err))
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("control api listening", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services. The engine stops first so every
// open position is closed before infrastructure goes away.
func (a *App) shutdown(ctx context.Context) error {
	if err := a.eng.Stop(ctx); err != nil {
		a.logger.Warn("engine stop error", applogger.Error(err))
	}

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("collector stop error", applogger.Error(err))
		}
	}

	if a.bridge != nil {
		a.bridge.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("state store close error", applogger.Error(err))
		}
	}

	a.bus.Close()
	a.logger.Info("shutdown complete")
	return nil
}
