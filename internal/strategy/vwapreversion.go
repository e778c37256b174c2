package strategy

import (
	"fmt"
	"math"

	"scalpd/internal/domain/models"
)

const vwapDeviationPercent = 1.0

// VWAPReversion fades stretched deviations from VWAP back toward fair value.
// Only meaningful in ranging markets; it stands down while trending.
type VWAPReversion struct{}

func NewVWAPReversion() *VWAPReversion { return &VWAPReversion{} }

func (s *VWAPReversion) Name() string { return NameVWAPReversion }

func (s *VWAPReversion) Evaluate(in Input) models.Signal {
	snap := in.Snapshot
	if !models.Valid(snap.VWAP) || snap.VWAP == 0 {
		return neutral(in, s.Name(), "vwap unavailable")
	}

	deviation := (snap.Price - snap.VWAP) / snap.VWAP * 100
	if math.Abs(deviation) < vwapDeviationPercent {
		return neutral(in, s.Name(), "price near vwap")
	}

	if in.Regime.Regime == models.RegimeTrendingUp || in.Regime.Regime == models.RegimeTrendingDown {
		return neutral(in, s.Name(), "reversion disabled while trending")
	}

	var dir models.Direction
	if deviation < 0 {
		dir = models.Long
	} else {
		dir = models.Short
	}

	confidence := 40 + math.Min(math.Abs(deviation)*5, 20)
	reasons := []string{fmt.Sprintf("price %.2f%% from vwap", deviation)}

	if models.Valid(snap.RSI) {
		if (dir == models.Long && snap.RSI < 40) || (dir == models.Short && snap.RSI > 60) {
			confidence += 10
			reasons = append(reasons, "rsi supports reversion")
		}
	}

	if models.Valid(snap.BBPercentB) {
		if (dir == models.Long && snap.BBPercentB < 0.2) || (dir == models.Short && snap.BBPercentB > 0.8) {
			confidence += 10
			reasons = append(reasons, "band edge supports reversion")
		}
	}

	return signal(in, s.Name(), dir, confidence, reasons)
}

var _ Strategy = (*VWAPReversion)(nil)
