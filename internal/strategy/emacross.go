package strategy

import (
	"fmt"

	"scalpd/internal/domain/models"
	"scalpd/internal/ta"
)

// EMACross trades fresh EMA5/EMA20 crossovers with trend-alignment, RSI-zone,
// and volume confirmation.
type EMACross struct{}

func NewEMACross() *EMACross { return &EMACross{} }

func (s *EMACross) Name() string { return NameEMACross }

func (s *EMACross) Evaluate(in Input) models.Signal {
	snap := in.Snapshot
	if len(in.Candles) < 22 || !models.Valid(snap.EMA5) || !models.Valid(snap.EMA20) {
		return neutral(in, s.Name(), "insufficient data for ema cross")
	}

	prevCloses := make([]float64, len(in.Candles)-1)
	for i := range prevCloses {
		prevCloses[i] = in.Candles[i].Close
	}
	prevFast := ta.EMA(prevCloses, 5)
	prevSlow := ta.EMA(prevCloses, 20)
	if !models.Valid(prevFast) || !models.Valid(prevSlow) {
		return neutral(in, s.Name(), "insufficient data for ema cross")
	}

	crossedUp := prevFast <= prevSlow && snap.EMA5 > snap.EMA20
	crossedDown := prevFast >= prevSlow && snap.EMA5 < snap.EMA20

	var dir models.Direction
	var reasons []string
	confidence := 0.0

	switch {
	case crossedUp:
		dir = models.Long
		confidence = 45
		reasons = append(reasons, "ema5 crossed above ema20")
	case crossedDown:
		dir = models.Short
		confidence = 45
		reasons = append(reasons, "ema5 crossed below ema20")
	case snap.EMA5 > snap.EMA20 && models.Valid(snap.EMA9) && snap.EMA5 > snap.EMA9 && snap.EMA9 > snap.EMA20:
		dir = models.Long
		confidence = 35
		reasons = append(reasons, "bullish ema stack continuation")
	case snap.EMA5 < snap.EMA20 && models.Valid(snap.EMA9) && snap.EMA5 < snap.EMA9 && snap.EMA9 < snap.EMA20:
		dir = models.Short
		confidence = 35
		reasons = append(reasons, "bearish ema stack continuation")
	default:
		return neutral(in, s.Name(), "no ema cross or alignment")
	}

	if models.Valid(snap.EMA50) {
		aligned := (dir == models.Long && snap.Price > snap.EMA50) ||
			(dir == models.Short && snap.Price < snap.EMA50)
		if aligned {
			confidence += 15
			reasons = append(reasons, "price aligned with ema50")
		}
	}

	if models.Valid(snap.RSI) {
		if dir == models.Long && snap.RSI >= 40 && snap.RSI <= 70 {
			confidence += 10
			reasons = append(reasons, fmt.Sprintf("rsi %.1f in long entry zone", snap.RSI))
		}
		if dir == models.Short && snap.RSI >= 30 && snap.RSI <= 60 {
			confidence += 10
			reasons = append(reasons, fmt.Sprintf("rsi %.1f in short entry zone", snap.RSI))
		}
		// Crossing into an exhausted market is a late entry.
		if (dir == models.Long && snap.RSI > 75) || (dir == models.Short && snap.RSI < 25) {
			confidence -= 15
			reasons = append(reasons, "rsi exhaustion penalty")
		}
	}

	if models.Valid(snap.VolumeRatio) && snap.VolumeRatio > 1.3 {
		confidence += 10
		reasons = append(reasons, "volume surge confirmation")
	}

	if in.Session == models.SessionAsian {
		confidence -= 10
		reasons = append(reasons, "asian session liquidity penalty")
	}

	return signal(in, s.Name(), dir, confidence, reasons)
}

var _ Strategy = (*EMACross)(nil)
