package engine

import (
	"scalpd/internal/domain/models"
)

const (
	// agreementBoost rewards technical and arbitrage signals pointing the
	// same way.
	agreementBoost = 1.1
	// strongArbConfidence lets an arbitrage signal drive an entry on its own
	// when the technical side is neutral.
	strongArbConfidence = 0.7
	// arbOverrideConfidence is the technical-scale confidence assigned to an
	// arbitrage-driven entry.
	arbOverrideConfidence = 75
)

// Combine reconciles the technical ensemble signal with the best arbitrage
// signal. It returns the decision signal, the arbitrage signal backing it
// (nil for pure technical entries), and whether the cycle must skip.
func Combine(tech models.Signal, arb *models.ArbitrageSignal) (models.Signal, *models.ArbitrageSignal, bool, string) {
	if arb == nil {
		return tech, nil, false, ""
	}

	if tech.Direction == models.Neutral {
		if arb.Confidence >= strongArbConfidence {
			out := tech
			out.Direction = arb.Direction
			out.Confidence = arbOverrideConfidence
			out.Reasons = append(append([]string{}, tech.Reasons...),
				"strong arbitrage signal overrides neutral technical")
			out.Strength = models.StrengthFor(out.Confidence)
			return out, arb, false, ""
		}
		return tech, nil, false, ""
	}

	if tech.Direction == arb.Direction {
		out := tech
		out.Confidence = models.ClampConfidence(out.Confidence * agreementBoost)
		out.Reasons = append(append([]string{}, tech.Reasons...),
			"arbitrage agrees with technical direction")
		out.Strength = models.StrengthFor(out.Confidence)
		return out, arb, false, ""
	}

	// Direct directional conflict: stand aside rather than pick a winner.
	return models.Signal{Direction: models.Neutral}, nil, true,
		"technical " + string(tech.Direction) + " conflicts with arbitrage " + string(arb.Direction)
}

// fiveMinuteGate applies the stricter entry rules for 5-minute windows.
func (e *Engine) fiveMinuteGate(combined models.Signal, arb *models.ArbitrageSignal, hasPosition bool) (bool, string) {
	if arb == nil || arb.Timeframe != "5m" {
		return true, ""
	}
	if combined.Confidence < e.cfg.FiveMinuteMinConfidence {
		return false, "combined confidence below 5m gate"
	}
	if arb.EdgePercentage < e.cfg.FiveMinuteMinEdge {
		return false, "arbitrage edge below 5m gate"
	}
	if hasPosition {
		return false, "existing position blocks 5m entry"
	}
	return true, ""
}
