package models

import "time"

// Candle represents one OHLCV bar. A candle is immutable once its interval
// closes; a re-delivered timestamp means the bar is still forming and the
// buffer replaces the previous copy.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Asset     string    `json:"asset"`
	Timeframe string    `json:"timeframe"`
	Closed    bool      `json:"closed"`
}

// TypicalPrice returns (H+L+C)/3, the price used for VWAP.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// Range returns the high-low span of the bar.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Ticker carries 24h exchange ticker fields for the dashboard snapshot.
type Ticker struct {
	Symbol             string    `json:"symbol"`
	LastPrice          float64   `json:"last_price"`
	PriceChange        float64   `json:"price_change"`
	PriceChangePercent float64   `json:"price_change_percent"`
	HighPrice          float64   `json:"high_price"`
	LowPrice           float64   `json:"low_price"`
	Volume             float64   `json:"volume"`
	QuoteVolume        float64   `json:"quote_volume"`
	FetchedAt          time.Time `json:"fetched_at"`
	// Stale marks a ticker served from cache after the source failed.
	Stale bool `json:"stale"`
}
