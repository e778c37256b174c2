package models

import "time"

// Trade is the immutable record created when a position closes. It owns its
// entry signal and indicator snapshot for audit.
type Trade struct {
	ID          string    `json:"id"`
	PositionID  string    `json:"position_id"`
	Asset       string    `json:"asset"`
	Timeframe   string    `json:"timeframe"`
	Direction   Direction `json:"direction"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	Quantity    float64   `json:"quantity"`
	PnLUSD      float64   `json:"pnl_usd"`
	PnLPercent  float64   `json:"pnl_percent"`
	ExitReason  string    `json:"exit_reason"`
	Strategy    string    `json:"strategy,omitempty"`
	PatternID   string    `json:"pattern_id,omitempty"`
	Regime      Regime    `json:"regime,omitempty"`
	Session     Session   `json:"session,omitempty"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
	EntrySignal *Signal   `json:"entry_signal,omitempty"`
}

// Won reports whether the trade closed profitably.
func (t *Trade) Won() bool { return t.PnLPercent > 0 }

// DailyRollup is one immutable per-day summary pushed to the analytics sink
// at UTC rollover.
type DailyRollup struct {
	Date         string    `json:"date"` // 2006-01-02, UTC
	Trades       int       `json:"trades"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	PnLUSD       float64   `json:"pnl_usd"`
	StartBalance float64   `json:"start_balance"`
	EndBalance   float64   `json:"end_balance"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	CreatedAt    time.Time `json:"created_at"`
}
