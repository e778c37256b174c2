package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"scalpd/internal/arbitrage"
	"scalpd/internal/domain/models"
	"scalpd/internal/domain/repository"
	"scalpd/internal/events"
	"scalpd/internal/market"
	"scalpd/internal/risk"
	"scalpd/internal/strategy"
	"scalpd/pkg/logger"
)

var (
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNotRunning     = errors.New("engine not running")
	ErrNotPaused      = errors.New("engine not paused")
	ErrTerminal       = errors.New("engine in error state, restart required")
)

// Config is the orchestrator's own tuning, extracted from the app config.
type Config struct {
	Assets          []string
	Timeframe       repository.Timeframe
	CycleInterval   time.Duration
	MetricsInterval time.Duration
	CycleTimeout    time.Duration
	WarmupCandles   int
	MinCandles      int
	StartBalance    float64

	// Stricter gate applied to entries on 5-minute windows.
	FiveMinuteMinConfidence float64
	FiveMinuteMinEdge       float64
}

// Engine is the singleton control loop. It is the only component that
// mutates trading state; everything else is a pure transform or owns
// strictly local counters.
type Engine struct {
	cfg      Config
	buffer   *market.Buffer
	ensemble *strategy.Ensemble
	detector *arbitrage.Detector
	risk     *risk.Manager
	bus      *events.Bus

	marketData repository.MarketData
	venue      repository.Venue
	sink       repository.AnalyticsSink
	store      repository.StateStore
	metrics    repository.Metrics
	logger     *logger.Logger

	mu      sync.RWMutex
	state   *models.BotState
	tickers map[string]*models.Ticker

	alerts  *alertRing
	signals *signalRing

	// cycleBusy is the single-slot re-entrancy guard: an overrunning cycle
	// makes the next tick skip instead of queueing.
	cycleBusy atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Deps carries the external collaborators.
type Deps struct {
	Buffer     *market.Buffer
	Ensemble   *strategy.Ensemble
	Detector   *arbitrage.Detector
	Risk       *risk.Manager
	Bus        *events.Bus
	MarketData repository.MarketData
	Venue      repository.Venue
	Sink       repository.AnalyticsSink
	Store      repository.StateStore
	Metrics    repository.Metrics
	Logger     *logger.Logger
}

func New(cfg Config, deps Deps) *Engine {
	return &Engine{
		cfg:        cfg,
		buffer:     deps.Buffer,
		ensemble:   deps.Ensemble,
		detector:   deps.Detector,
		risk:       deps.Risk,
		bus:        deps.Bus,
		marketData: deps.MarketData,
		venue:      deps.Venue,
		sink:       deps.Sink,
		store:      deps.Store,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		state:      models.NewBotState(cfg.StartBalance, time.Now().UTC()),
		tickers:    make(map[string]*models.Ticker),
		alerts:     newAlertRing(),
		signals:    newSignalRing(),
	}
}

// Status returns the lifecycle state.
func (e *Engine) Status() models.EngineStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Status
}

func (e *Engine) setStatus(s models.EngineStatus) {
	e.mu.Lock()
	e.state.Status = s
	e.mu.Unlock()
	e.bus.Publish(events.TypeStateUpdated, map[string]string{"status": string(s)})
}

// Start initializes and launches the trading and metrics loops. An
// initialization failure is fatal: the engine transitions to ERROR.
func (e *Engine) Start(ctx context.Context) error {
	switch e.Status() {
	case models.StatusRunning, models.StatusPaused:
		return ErrAlreadyRunning
	case models.StatusError:
		return ErrTerminal
	}

	if err := e.initialize(ctx); err != nil {
		e.setStatus(models.StatusError)
		e.alert("FATAL", "engine", fmt.Sprintf("initialization failed: %v", err))
		return fmt.Errorf("initialize engine: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.setStatus(models.StatusRunning)

	e.wg.Add(2)
	go e.cycleLoop(runCtx)
	go e.metricsLoop(runCtx)

	e.logger.Info("engine started",
		logger.Strings("assets", e.cfg.Assets),
		logger.Duration("cycle_interval", e.cfg.CycleInterval))
	return nil
}

// Pause suspends trading without tearing anything down. The metrics loop
// keeps reporting.
func (e *Engine) Pause() error {
	if e.Status() != models.StatusRunning {
		return ErrNotRunning
	}
	e.setStatus(models.StatusPaused)
	e.logger.Info("engine paused")
	return nil
}

// Resume continues trading after a pause.
func (e *Engine) Resume() error {
	if e.Status() != models.StatusPaused {
		return ErrNotPaused
	}
	e.setStatus(models.StatusRunning)
	e.logger.Info("engine resumed")
	return nil
}

// Stop halts both loops, synchronously closes every open position, persists
// state, and only then transitions to STOPPED.
func (e *Engine) Stop(ctx context.Context) error {
	switch e.Status() {
	case models.StatusStopped, models.StatusError:
		return ErrNotRunning
	}

	e.cancel()
	e.wg.Wait()

	e.closeAllPositions(ctx, "engine stopped")
	e.venue.StopHeartbeat()

	if err := e.saveState(ctx); err != nil {
		e.logger.Error("state save on shutdown failed", logger.Error(err))
	}

	e.setStatus(models.StatusStopped)
	e.logger.Info("engine stopped")
	return nil
}

// initialize warms the candle buffer, starts the venue heartbeat, restores
// persisted state, and fetches the starting balance.
func (e *Engine) initialize(ctx context.Context) error {
	if err := e.restoreState(ctx); err != nil {
		e.logger.Warn("state restore failed, starting fresh", logger.Error(err))
	}

	for _, asset := range e.cfg.Assets {
		candles, err := e.marketData.FetchCandles(ctx, asset, e.cfg.Timeframe, e.cfg.WarmupCandles)
		if err != nil {
			return fmt.Errorf("warm up %s candles: %w", asset, err)
		}
		for _, c := range candles {
			e.buffer.AppendCandle(c)
		}
		e.logger.Info("warmed candle buffer",
			logger.String("asset", asset),
			logger.Int("candles", len(candles)))
	}

	balance, err := e.venue.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("fetch starting balance: %w", err)
	}
	e.mu.Lock()
	e.state.Balance = balance
	if balance > e.state.PeakBalance {
		e.state.PeakBalance = balance
	}
	e.mu.Unlock()

	if err := e.venue.StartHeartbeat(ctx); err != nil {
		return fmt.Errorf("start venue heartbeat: %w", err)
	}

	if e.sink != nil {
		if err := e.sink.Init(ctx); err != nil {
			// Analytics is off the hot path; degrade instead of refusing to start.
			e.alert("WARNING", "analytics", fmt.Sprintf("sink init failed: %v", err))
		}
	}
	return nil
}

// alert records, logs, and publishes one alert.
func (e *Engine) alert(level, source, message string) {
	a := e.alerts.add(level, source, message, time.Now().UTC())
	switch level {
	case "WARNING":
		e.logger.Warn(message, logger.String("source", source))
	default:
		e.logger.Error(message, logger.String("source", source))
	}
	e.bus.Publish(events.TypeAlert, a)
	if e.metrics != nil {
		e.metrics.RecordError(source)
	}
}

// Alerts returns the most recent alerts, newest first.
func (e *Engine) Alerts(limit int) []models.Alert {
	return e.alerts.list(limit)
}
