package repository

import "time"

// Timeframe identifies a candle interval.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF5m, TF15m, TF1h:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF15m }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Duration returns the bar length of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	default:
		return 15 * time.Minute
	}
}

// MinWindowRemaining is the floor of remaining prediction-window time below
// which an arbitrage entry is never taken on this timeframe.
func (tf Timeframe) MinWindowRemaining() time.Duration {
	switch tf {
	case TF1m:
		return 15 * time.Second
	case TF5m:
		return 45 * time.Second
	case TF15m:
		return 2 * time.Minute
	case TF1h:
		return 5 * time.Minute
	default:
		return time.Minute
	}
}
