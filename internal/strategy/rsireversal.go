package strategy

import (
	"fmt"

	"scalpd/internal/domain/models"
	"scalpd/internal/ta"
)

// RSIReversal fades oversold/overbought extremes, with stochastic and
// Bollinger confirmation. It stands down against strong trends.
type RSIReversal struct{}

func NewRSIReversal() *RSIReversal { return &RSIReversal{} }

func (s *RSIReversal) Name() string { return NameRSIReversal }

func (s *RSIReversal) Evaluate(in Input) models.Signal {
	snap := in.Snapshot
	if !models.Valid(snap.RSI) {
		return neutral(in, s.Name(), "rsi unavailable")
	}

	var dir models.Direction
	switch {
	case snap.RSI < 30:
		dir = models.Long
	case snap.RSI > 70:
		dir = models.Short
	default:
		return neutral(in, s.Name(), "rsi in neutral zone")
	}

	confidence := 45.0
	reasons := []string{fmt.Sprintf("rsi %.1f at reversal extreme", snap.RSI)}

	if (dir == models.Long && snap.RSI < 20) || (dir == models.Short && snap.RSI > 80) {
		confidence += 10
		reasons = append(reasons, "deep extreme bonus")
	}

	if models.Valid(snap.StochK) {
		if (dir == models.Long && snap.StochK < 20) || (dir == models.Short && snap.StochK > 80) {
			confidence += 10
			reasons = append(reasons, "stochastic confirms extreme")
		}
	}

	if models.Valid(snap.BBPercentB) {
		if (dir == models.Long && snap.BBPercentB < 0.05) || (dir == models.Short && snap.BBPercentB > 0.95) {
			confidence += 10
			reasons = append(reasons, "price outside bollinger band")
		}
	}

	if models.Valid(snap.VolumeRatio) && snap.VolumeRatio > 1.5 {
		confidence += 5
		reasons = append(reasons, "capitulation volume")
	}

	// A reversal candle at the extreme is the strongest confirmation this
	// strategy gets.
	for _, p := range ta.DetectPatterns(in.Candles) {
		if p.Name == "doji" {
			continue
		}
		if (dir == models.Long && p.Bullish) || (dir == models.Short && !p.Bullish) {
			confidence += p.Strength * 15
			reasons = append(reasons, p.Name+" confirms reversal")
			break
		}
	}

	// Fading a strong trend is how reversal strategies blow up.
	if (dir == models.Long && in.Regime.Regime == models.RegimeTrendingDown) ||
		(dir == models.Short && in.Regime.Regime == models.RegimeTrendingUp) {
		confidence -= 20
		reasons = append(reasons, "counter-trend penalty")
	}

	return signal(in, s.Name(), dir, confidence, reasons)
}

var _ Strategy = (*RSIReversal)(nil)
