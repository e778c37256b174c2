package models

import "time"

// ArbitrageAction is what the detector recommends for a window.
type ArbitrageAction string

const (
	ActionBuy  ArbitrageAction = "BUY"
	ActionSell ArbitrageAction = "SELL"
	ActionWait ArbitrageAction = "WAIT"
	ActionSkip ArbitrageAction = "SKIP"
)

// MarketWindow is one active prediction-market window (an UP/DOWN pair that
// resolves against the exchange price at EndTime).
type MarketWindow struct {
	ID          string    `json:"id"`
	Asset       string    `json:"asset"`
	Timeframe   string    `json:"timeframe"`
	Question    string    `json:"question,omitempty"`
	OpenPrice   float64   `json:"open_price"` // exchange price at window open
	OpenTime    time.Time `json:"open_time"`
	EndTime     time.Time `json:"end_time"`
	UpTokenID   string    `json:"up_token_id"`
	DownTokenID string    `json:"down_token_id"`
	UpPrice     float64   `json:"up_price"`   // live market price of UP, 0-1
	DownPrice   float64   `json:"down_price"` // live market price of DOWN, 0-1
	// TimeframeFallback marks a window selected by the venue's
	// first-available fallback when no window matched the requested
	// timeframe. Such windows are logged and never traded.
	TimeframeFallback bool `json:"timeframe_fallback,omitempty"`
}

// Remaining returns time left until the window resolves.
func (w MarketWindow) Remaining(now time.Time) time.Duration {
	return w.EndTime.Sub(now)
}

// Progress returns elapsed fraction of the window in [0, 1].
func (w MarketWindow) Progress(now time.Time) float64 {
	total := w.EndTime.Sub(w.OpenTime)
	if total <= 0 {
		return 1
	}
	p := float64(now.Sub(w.OpenTime)) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ArbitrageSignal is a time-bounded mispricing signal. Confidence is on the
// detector's own 0-1 scale. Invalid after ExpiresAt or window resolution.
type ArbitrageSignal struct {
	Asset          string          `json:"asset"`
	Timeframe      string          `json:"timeframe"`
	WindowID       string          `json:"window_id"`
	TokenID        string          `json:"token_id"`
	Direction      Direction       `json:"direction"`
	Action         ArbitrageAction `json:"action"`
	Confidence     float64         `json:"confidence"` // 0-1
	EdgePercentage float64         `json:"edge_percentage"`
	MispriceAmount float64         `json:"misprice_amount"`
	PriceMovement  float64         `json:"price_movement"` // % since window open
	WindowProgress float64         `json:"window_progress"`
	MarketPrice    float64         `json:"market_price"` // live token price, 0-1
	FairPrice      float64         `json:"fair_price"`   // model-implied probability
	Reasons        []string        `json:"reasons"`
	WindowEndsAt   time.Time       `json:"window_ends_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	DetectedAt     time.Time       `json:"detected_at"`
}

// Expired reports whether the signal is no longer actionable.
func (s *ArbitrageSignal) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ClampProbability bounds v to [0, 1].
func ClampProbability(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
