package strategy

import (
	"fmt"
	"math"

	"scalpd/internal/domain/models"
	"scalpd/internal/ta"
)

const breakoutLookback = 20

// Breakout trades closes beyond the recent consolidation range, requiring
// volume and trend-strength confirmation to filter fakeouts.
type Breakout struct{}

func NewBreakout() *Breakout { return &Breakout{} }

func (s *Breakout) Name() string { return NameBreakout }

func (s *Breakout) Evaluate(in Input) models.Signal {
	if len(in.Candles) < breakoutLookback+1 {
		return neutral(in, s.Name(), "insufficient data for breakout range")
	}
	snap := in.Snapshot

	// Range excludes the breakout bar itself.
	window := in.Candles[len(in.Candles)-breakoutLookback-1 : len(in.Candles)-1]
	high, low := window[0].High, window[0].Low
	for _, c := range window[1:] {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
	}

	var dir models.Direction
	var reasons []string
	confidence := 0.0

	switch {
	case snap.Price > high:
		dir = models.Long
		confidence = 45
		reasons = append(reasons, fmt.Sprintf("close %.2f above %d-bar high %.2f", snap.Price, breakoutLookback, high))
	case snap.Price < low:
		dir = models.Short
		confidence = 45
		reasons = append(reasons, fmt.Sprintf("close %.2f below %d-bar low %.2f", snap.Price, breakoutLookback, low))
	default:
		return neutral(in, s.Name(), "price inside range")
	}

	if models.Valid(snap.VolumeRatio) && snap.VolumeRatio > 1.5 {
		confidence += 15
		reasons = append(reasons, "breakout volume confirmation")
	} else if models.Valid(snap.VolumeRatio) && snap.VolumeRatio < 0.8 {
		confidence -= 15
		reasons = append(reasons, "low volume fakeout risk")
	}

	if models.Valid(snap.ADX) && snap.ADX > 25 {
		confidence += 10
		reasons = append(reasons, "adx confirms directional strength")
	}

	// Clearing a swing level, not just the rolling range, separates real
	// breakouts from range noise. Levels come from the pre-breakout series.
	levels := ta.FindLevels(in.Candles[:len(in.Candles)-1])
	if dir == models.Long && len(levels.Resistance) > 0 && snap.Price > levels.Resistance[0] {
		confidence += 10
		reasons = append(reasons, fmt.Sprintf("cleared swing resistance %.2f", levels.Resistance[0]))
	}
	if dir == models.Short && len(levels.Support) > 0 && snap.Price < levels.Support[0] {
		confidence += 10
		reasons = append(reasons, fmt.Sprintf("broke swing support %.2f", levels.Support[0]))
	}

	if models.Valid(snap.BBPercentB) {
		if (dir == models.Long && snap.BBPercentB > 1) || (dir == models.Short && snap.BBPercentB < 0) {
			confidence += 5
			reasons = append(reasons, "band expansion")
		}
	}

	if in.Regime.Regime == models.RegimeChoppy {
		confidence -= 15
		reasons = append(reasons, "choppy regime penalty")
	}

	return signal(in, s.Name(), dir, confidence, reasons)
}

var _ Strategy = (*Breakout)(nil)
