package models

import "time"

// Direction of a trading signal or position.
type Direction string

const (
	Long    Direction = "LONG"
	Short   Direction = "SHORT"
	Neutral Direction = "NEUTRAL"
)

// Opposite returns the inverse direction; NEUTRAL maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return Neutral
	}
}

// Strength buckets a signal's confidence.
type Strength string

const (
	Weak     Strength = "WEAK"
	Moderate Strength = "MODERATE"
	Strong   Strength = "STRONG"
)

// StrengthFor maps a 0-100 confidence to a strength bucket.
func StrengthFor(confidence float64) Strength {
	switch {
	case confidence >= 75:
		return Strong
	case confidence >= 50:
		return Moderate
	default:
		return Weak
	}
}

// Signal is a directional trading signal. One is produced per strategy per
// cycle, and one combined signal per cycle. Confidence is always in [0, 100].
type Signal struct {
	Asset      string             `json:"asset"`
	Timeframe  string             `json:"timeframe"`
	Direction  Direction          `json:"direction"`
	Confidence float64            `json:"confidence"`
	Reasons    []string           `json:"reasons"`
	Strength   Strength           `json:"strength"`
	Strategy   string             `json:"strategy,omitempty"`
	Price      float64            `json:"price"`
	Regime     Regime             `json:"regime,omitempty"`
	Session    Session            `json:"session,omitempty"`
	Snapshot   *IndicatorSnapshot `json:"snapshot,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// NeutralSignal builds a zero-confidence signal carrying a single reason.
func NeutralSignal(asset, strategy, reason string, now time.Time) Signal {
	return Signal{
		Asset:      asset,
		Strategy:   strategy,
		Direction:  Neutral,
		Confidence: 0,
		Strength:   Weak,
		Reasons:    []string{reason},
		Timestamp:  now,
	}
}

// ClampConfidence bounds v to [0, 100].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
