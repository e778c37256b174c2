package ta

import (
	"math"

	"scalpd/internal/domain/models"
)

// DetectPatterns scans the last two candles for simple single- and two-bar
// reversal patterns. Returns nil when nothing is recognized.
func DetectPatterns(candles []models.Candle) []models.CandlePattern {
	if len(candles) == 0 {
		return nil
	}
	var out []models.CandlePattern

	last := candles[len(candles)-1]
	body := math.Abs(last.Close - last.Open)
	rng := last.Range()
	if rng > 0 {
		upperWick := last.High - math.Max(last.Open, last.Close)
		lowerWick := math.Min(last.Open, last.Close) - last.Low

		if body/rng < 0.1 {
			out = append(out, models.CandlePattern{Name: "doji", Bullish: false, Strength: 0.3})
		}
		if lowerWick > 2*body && upperWick < body {
			out = append(out, models.CandlePattern{Name: "hammer", Bullish: true, Strength: 0.6})
		}
		if upperWick > 2*body && lowerWick < body {
			out = append(out, models.CandlePattern{Name: "shooting_star", Bullish: false, Strength: 0.6})
		}
	}

	if len(candles) >= 2 {
		prev := candles[len(candles)-2]
		prevBody := math.Abs(prev.Close - prev.Open)
		if body > prevBody {
			if last.Close > last.Open && prev.Close < prev.Open &&
				last.Close > prev.Open && last.Open < prev.Close {
				out = append(out, models.CandlePattern{Name: "bullish_engulfing", Bullish: true, Strength: 0.7})
			}
			if last.Close < last.Open && prev.Close > prev.Open &&
				last.Close < prev.Open && last.Open > prev.Close {
				out = append(out, models.CandlePattern{Name: "bearish_engulfing", Bullish: false, Strength: 0.7})
			}
		}
	}
	return out
}
