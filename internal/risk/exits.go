package risk

import (
	"scalpd/internal/domain/models"
)

// StopLoss computes the initial stop price. ATR-based when ATR is available,
// with a wider multiplier in volatile regimes and a tight one in ranges;
// fixed-percent fallback otherwise.
func (m *Manager) StopLoss(entry float64, dir models.Direction, atr float64, regime models.Regime) float64 {
	var distance float64
	if models.Valid(atr) && atr > 0 {
		mult := m.cfg.ATRStopMultiplier
		switch regime {
		case models.RegimeVolatile:
			mult = atrMultVolatile
		case models.RegimeRanging:
			mult = atrMultRanging
		}
		distance = atr * mult
	} else {
		distance = entry * m.cfg.StopLossPercent / 100
	}

	if dir == models.Short {
		return entry + distance
	}
	return entry - distance
}

// TakeProfitLevels builds the three-level partial-exit ladder for a new
// position. Reductions sum to 1.0.
func (m *Manager) TakeProfitLevels(entry float64, dir models.Direction) []models.TakeProfitLevel {
	out := make([]models.TakeProfitLevel, 0, len(takeProfitLadder))
	for _, lvl := range takeProfitLadder {
		offset := entry * lvl.pricePercent / 100
		price := entry + offset
		if dir == models.Short {
			price = entry - offset
		}
		out = append(out, models.TakeProfitLevel{
			Price:             price,
			PositionReduction: lvl.reduction,
		})
	}
	return out
}

// UpdateTrailing activates and tightens the trailing stop. Once active the
// stop only ever moves in the position's favor.
func (m *Manager) UpdateTrailing(pos *models.Position, price float64) {
	profit := pos.PnLPercent(price)

	if !pos.Trailing.Activated {
		if profit < m.cfg.TrailingActivationPercent {
			return
		}
		pos.Trailing.Activated = true
		pos.Trailing.Distance = m.cfg.TrailingDistancePercent / 100
		pos.Trailing.HighestPrice = price
		pos.Trailing.LowestPrice = price
	}

	if pos.Direction == models.Long {
		if price > pos.Trailing.HighestPrice {
			pos.Trailing.HighestPrice = price
		}
		candidate := pos.Trailing.HighestPrice * (1 - pos.Trailing.Distance)
		if candidate > pos.CurrentStopLoss {
			pos.CurrentStopLoss = candidate
		}
		return
	}

	if price < pos.Trailing.LowestPrice {
		pos.Trailing.LowestPrice = price
	}
	candidate := pos.Trailing.LowestPrice * (1 + pos.Trailing.Distance)
	if pos.CurrentStopLoss == 0 || candidate < pos.CurrentStopLoss {
		pos.CurrentStopLoss = candidate
	}
}

// CheckTakeProfits returns the indices of untriggered levels the price has
// now reached, marking each as triggered so it fires exactly once.
func (m *Manager) CheckTakeProfits(pos *models.Position, price float64) []int {
	var hit []int
	for i := range pos.TakeProfits {
		lvl := &pos.TakeProfits[i]
		if lvl.Triggered {
			continue
		}
		reached := (pos.Direction == models.Long && price >= lvl.Price) ||
			(pos.Direction == models.Short && price <= lvl.Price)
		if reached {
			lvl.Triggered = true
			hit = append(hit, i)
		}
	}
	return hit
}

// StopHit reports whether the stop-loss is breached at price.
func StopHit(pos *models.Position, price float64) bool {
	if pos.CurrentStopLoss == 0 {
		return false
	}
	if pos.Direction == models.Short {
		return price >= pos.CurrentStopLoss
	}
	return price <= pos.CurrentStopLoss
}
