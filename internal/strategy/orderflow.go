package strategy

import (
	"fmt"
	"math"

	"scalpd/internal/domain/models"
)

const orderFlowThreshold = 0.3

// OrderFlow trades sustained buy/sell imbalance estimated from close
// placement, with OBV trend confirmation.
type OrderFlow struct{}

func NewOrderFlow() *OrderFlow { return &OrderFlow{} }

func (s *OrderFlow) Name() string { return NameOrderFlow }

func (s *OrderFlow) Evaluate(in Input) models.Signal {
	snap := in.Snapshot
	if !models.Valid(snap.OrderFlow) {
		return neutral(in, s.Name(), "order flow unavailable")
	}

	of := snap.OrderFlow
	if math.Abs(of) < orderFlowThreshold {
		return neutral(in, s.Name(), "balanced order flow")
	}

	var dir models.Direction
	if of > 0 {
		dir = models.Long
	} else {
		dir = models.Short
	}

	confidence := 35 + math.Abs(of)*35
	reasons := []string{fmt.Sprintf("order flow imbalance %.2f", of)}

	if models.Valid(snap.OBV) && models.Valid(snap.OBVMA) {
		if (dir == models.Long && snap.OBV > snap.OBVMA) || (dir == models.Short && snap.OBV < snap.OBVMA) {
			confidence += 10
			reasons = append(reasons, "obv confirms flow direction")
		}
	}

	if models.Valid(snap.VolumeRatio) && snap.VolumeRatio > 1.5 {
		confidence += 10
		reasons = append(reasons, "imbalance on elevated volume")
	}

	return signal(in, s.Name(), dir, confidence, reasons)
}

var _ Strategy = (*OrderFlow)(nil)
