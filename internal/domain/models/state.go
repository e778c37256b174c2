package models

import "time"

// DailyStats are the risk manager's per-UTC-day counters. They reset exactly
// once per calendar day; Date anchors the reset check.
type DailyStats struct {
	Date         string  `json:"date"` // 2006-01-02, UTC
	StartBalance float64 `json:"start_balance"`
	PnLUSD       float64 `json:"pnl_usd"`
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	MaxDrawdown  float64 `json:"max_drawdown"`
}

// EngineStatus is the orchestrator's lifecycle state.
type EngineStatus string

const (
	StatusStopped EngineStatus = "STOPPED"
	StatusRunning EngineStatus = "RUNNING"
	StatusPaused  EngineStatus = "PAUSED"
	StatusError   EngineStatus = "ERROR"
)

// BotState is the serializable authoritative state owned by the engine:
// balances, open positions, closed-trade history, counters, and the adaptive
// weights that must survive restarts.
type BotState struct {
	Status          EngineStatus         `json:"status"`
	Balance         float64              `json:"balance"`
	PeakBalance     float64              `json:"peak_balance"`
	Positions       map[string]*Position `json:"positions"` // keyed by asset; at most one per asset
	Trades          []Trade              `json:"trades"`
	Daily           DailyStats           `json:"daily"`
	StrategyWeights map[string]float64   `json:"strategy_weights"`
	Patterns        map[string]*Pattern  `json:"patterns"`
	TradesThisHour  int                  `json:"trades_this_hour"`
	LastTradeAt     time.Time            `json:"last_trade_at"`
	SavedAt         time.Time            `json:"saved_at"`
}

// NewBotState builds a fresh state with the given starting balance.
func NewBotState(balance float64, now time.Time) *BotState {
	return &BotState{
		Status:      StatusStopped,
		Balance:     balance,
		PeakBalance: balance,
		Positions:   make(map[string]*Position),
		Daily: DailyStats{
			Date:         now.UTC().Format("2006-01-02"),
			StartBalance: balance,
		},
		StrategyWeights: make(map[string]float64),
		Patterns:        make(map[string]*Pattern),
		SavedAt:         now,
	}
}

// Drawdown returns the peak-to-current balance decline as a percentage of the
// peak.
func (s *BotState) Drawdown() float64 {
	if s.PeakBalance <= 0 {
		return 0
	}
	dd := (s.PeakBalance - s.Balance) / s.PeakBalance * 100
	if dd < 0 {
		return 0
	}
	return dd
}

// Alert is one retained observability record (ring-buffered, most-recent-N).
type Alert struct {
	Level     string    `json:"level"` // WARNING, CRITICAL, FATAL
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
