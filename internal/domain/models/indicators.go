package models

import (
	"math"
	"time"
)

// IndicatorSnapshot is the canonical read-only value computed fresh each cycle
// from the candle series. Fields that could not be computed (insufficient
// candles) hold NaN; consumers treat NaN as "insufficient data, stay neutral".
type IndicatorSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`

	EMA5   float64 `json:"ema5"`
	EMA9   float64 `json:"ema9"`
	EMA20  float64 `json:"ema20"`
	EMA50  float64 `json:"ema50"`
	EMA200 float64 `json:"ema200"`

	RSI float64 `json:"rsi"`

	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	BBPercentB float64 `json:"bb_percent_b"`

	ATR        float64 `json:"atr"`
	ATRPercent float64 `json:"atr_percent"`

	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plus_di"`
	MinusDI float64 `json:"minus_di"`

	StochK float64 `json:"stoch_k"`
	StochD float64 `json:"stoch_d"`

	VWAP float64 `json:"vwap"`

	OBV   float64 `json:"obv"`
	OBVMA float64 `json:"obv_ma"`

	// OrderFlow estimates buy/sell imbalance in [-1, 1] from where closes sit
	// within their bar ranges. It is a proxy, not order-book data.
	OrderFlow float64 `json:"order_flow"`

	Volume      float64 `json:"volume"`
	VolumeMA    float64 `json:"volume_ma"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// Valid reports whether an indicator value was computable.
func Valid(x float64) bool { return !math.IsNaN(x) }

// Regime classifies current market behavior.
type Regime string

const (
	RegimeTrendingUp   Regime = "TRENDING_UP"
	RegimeTrendingDown Regime = "TRENDING_DOWN"
	RegimeRanging      Regime = "RANGING"
	RegimeVolatile     Regime = "VOLATILE"
	RegimeChoppy       Regime = "CHOPPY"
)

// RegimeAnalysis is recomputed every cycle; only the latest value matters.
type RegimeAnalysis struct {
	Regime        Regime  `json:"regime"`
	Confidence    float64 `json:"confidence"` // 0-100
	TrendStrength float64 `json:"trend_strength"`
	Volatility    float64 `json:"volatility"` // ATR as % of price
	RangeHigh     float64 `json:"range_high"`
	RangeLow      float64 `json:"range_low"`
}

// Session is the active trading session by UTC hour.
type Session string

const (
	SessionAsian   Session = "ASIAN"
	SessionLondon  Session = "LONDON"
	SessionOverlap Session = "OVERLAP"
	SessionNY      Session = "NY"
)

// CandlePattern names a recognized single- or two-bar pattern.
type CandlePattern struct {
	Name     string  `json:"name"`
	Bullish  bool    `json:"bullish"`
	Strength float64 `json:"strength"` // 0-1
}

// PriceLevels holds pivot-derived support/resistance.
type PriceLevels struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}
