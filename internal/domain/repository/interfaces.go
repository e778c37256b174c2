package repository

import (
	"context"

	"scalpd/internal/domain/models"
)

// MarketData is the exchange-side price source. Implementations must retry
// transient failures with backoff and degrade to stale data instead of failing
// the trading cycle.
type MarketData interface {
	FetchCandles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
	FetchTicker(ctx context.Context, symbol string) (*models.Ticker, error)
}

// MarketStream is a live candle feed over WebSocket.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Candle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Venue is the prediction-market trading client. All calls are authenticated;
// implementations retry transient failures with exponential backoff.
type Venue interface {
	GetBalance(ctx context.Context) (float64, error)
	FindActiveWindows(ctx context.Context, asset string, tf Timeframe) ([]models.MarketWindow, error)
	GetPrice(ctx context.Context, tokenID string) (float64, error)
	PlaceLimitOrder(ctx context.Context, tokenID, side string, price, size float64) (string, error)
	StartHeartbeat(ctx context.Context) error
	StopHeartbeat()
}

// AnalyticsSink receives immutable records for offline analytics. The engine
// never queries it on the hot path.
type AnalyticsSink interface {
	Init(ctx context.Context) error
	InsertTrade(ctx context.Context, t *models.Trade) error
	InsertSignal(ctx context.Context, s *models.Signal) error
	InsertDailyRollup(ctx context.Context, r *models.DailyRollup) error
	Health(ctx context.Context) error
	Close() error
}

// StateStore persists the engine's durable state for crash recovery.
type StateStore interface {
	Save(ctx context.Context, st *models.BotState) error
	Load(ctx context.Context) (*models.BotState, error)
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordCycle(seconds float64)
	RecordError(kind string)
	RecordSignal(direction string)
	RecordTradeClosed(outcome string)
	SetBalance(balance float64)
	SetPeakBalance(peak float64)
	SetDrawdown(pct float64)
	SetOpenPositions(n int)
	SetLastPrice(asset string, price float64)
	RecordLatency(op string, seconds float64)
}
