package ta

import (
	"sort"

	"scalpd/internal/domain/models"
)

const (
	levelPivotSpan = 2
	maxLevels      = 3
)

// FindLevels extracts swing-point support and resistance levels from the
// series, strongest (closest to price) first, at most maxLevels each.
func FindLevels(candles []models.Candle) models.PriceLevels {
	var levels models.PriceLevels
	if len(candles) < 2*levelPivotSpan+1 {
		return levels
	}
	price := candles[len(candles)-1].Close

	for i := levelPivotSpan; i < len(candles)-levelPivotSpan; i++ {
		isHigh, isLow := true, true
		for j := i - levelPivotSpan; j <= i+levelPivotSpan; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh && candles[i].High > price {
			levels.Resistance = append(levels.Resistance, candles[i].High)
		}
		if isLow && candles[i].Low < price {
			levels.Support = append(levels.Support, candles[i].Low)
		}
	}

	sort.Float64s(levels.Resistance)
	if len(levels.Resistance) > maxLevels {
		levels.Resistance = levels.Resistance[:maxLevels]
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(levels.Support)))
	if len(levels.Support) > maxLevels {
		levels.Support = levels.Support[:maxLevels]
	}
	return levels
}
