package models

import "time"

// PositionStatus is the lifecycle state of an open position.
type PositionStatus string

const (
	PositionOpen    PositionStatus = "OPEN"
	PositionClosing PositionStatus = "CLOSING"
	PositionClosed  PositionStatus = "CLOSED"
)

// TrailingStop tracks the trailing-stop state of a position. Once activated
// the stop only ever tightens in the position's favor.
type TrailingStop struct {
	Activated    bool    `json:"activated"`
	Distance     float64 `json:"distance"` // fraction of price, e.g. 0.005
	HighestPrice float64 `json:"highest_price"`
	LowestPrice  float64 `json:"lowest_price"`
}

// TakeProfitLevel is one partial-exit target; each triggers exactly once.
type TakeProfitLevel struct {
	Price             float64 `json:"price"`
	PositionReduction float64 `json:"position_reduction"` // fraction of quantity
	Triggered         bool    `json:"triggered"`
}

// Position is an open position. It is created on execution and exclusively
// owned and mutated by the engine's monitor step until it closes.
type Position struct {
	ID              string            `json:"id"`
	Asset           string            `json:"asset"`
	Timeframe       string            `json:"timeframe"`
	Direction       Direction         `json:"direction"`
	Status          PositionStatus    `json:"status"`
	EntryPrice      float64           `json:"entry_price"`
	Quantity        float64           `json:"quantity"`
	RemainingQty    float64           `json:"remaining_qty"`
	ValueUSD        float64           `json:"value_usd"`
	CurrentStopLoss float64           `json:"current_stop_loss"`
	Trailing        TrailingStop      `json:"trailing"`
	TakeProfits     []TakeProfitLevel `json:"take_profits"`
	RealizedPnL     float64           `json:"realized_pnl"`
	Confidence      float64           `json:"confidence"`
	Strategy        string            `json:"strategy,omitempty"`
	PatternID       string            `json:"pattern_id,omitempty"`
	Regime          Regime            `json:"regime,omitempty"`
	Session         Session           `json:"session,omitempty"`
	WindowID        string            `json:"window_id,omitempty"`
	WindowEndsAt    time.Time         `json:"window_ends_at,omitempty"`
	TokenID         string            `json:"token_id,omitempty"`
	OpenedAt        time.Time         `json:"opened_at"`
	EntrySignal     *Signal           `json:"entry_signal,omitempty"`
}

// PnLPercent returns the unrealized P&L of the remaining quantity at price.
func (p *Position) PnLPercent(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	if p.Direction == Short {
		return (p.EntryPrice - price) / p.EntryPrice * 100
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// PnLUSD returns the unrealized P&L in quote currency for the remaining size.
func (p *Position) PnLUSD(price float64) float64 {
	diff := price - p.EntryPrice
	if p.Direction == Short {
		diff = -diff
	}
	return diff * p.RemainingQty
}
