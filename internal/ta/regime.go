package ta

import (
	"math"

	"scalpd/internal/domain/models"
)

// Regime classification thresholds.
const (
	adxStrongTrend = 35.0
	adxMildTrend   = 20.0
	// Both must be exceeded for a low-ADX market to count as volatile.
	volatileATRPercent   = 1.5
	volatileRangePercent = 3.0
	regimeRangeBars      = 20
	choppyEMAGapPercent  = 0.05
)

// ClassifyRegime derives the market regime from the snapshot and the recent
// range. A NaN ADX means not enough data; that reads as a low-confidence
// CHOPPY call rather than an error.
func ClassifyRegime(candles []models.Candle, snap *models.IndicatorSnapshot) models.RegimeAnalysis {
	out := models.RegimeAnalysis{
		Regime:     models.RegimeChoppy,
		Confidence: 20,
	}
	if snap == nil || !models.Valid(snap.ADX) {
		return out
	}

	out.TrendStrength = snap.ADX
	if models.Valid(snap.ATRPercent) {
		out.Volatility = snap.ATRPercent
	}
	out.RangeHigh, out.RangeLow = recentRange(candles, regimeRangeBars)

	rangePct := 0.0
	if out.RangeLow > 0 {
		rangePct = (out.RangeHigh - out.RangeLow) / out.RangeLow * 100
	}

	emaReadable := models.Valid(snap.EMA9) && models.Valid(snap.EMA20)

	switch {
	case snap.ADX > adxStrongTrend:
		if !emaReadable {
			return out
		}
		if snap.EMA9 > snap.EMA20 {
			out.Regime = models.RegimeTrendingUp
		} else {
			out.Regime = models.RegimeTrendingDown
		}
		out.Confidence = math.Min(50+snap.ADX, 100)

	case snap.ADX >= adxMildTrend:
		if !emaReadable {
			return out
		}
		// A mild-trend ADX with the fast EMAs on top of each other means the
		// directional reading conflicts with the strength reading.
		if snap.Price > 0 && math.Abs(snap.EMA9-snap.EMA20)/snap.Price*100 < choppyEMAGapPercent {
			out.Regime = models.RegimeChoppy
			out.Confidence = 45
			break
		}
		if snap.EMA9 > snap.EMA20 {
			out.Regime = models.RegimeTrendingUp
		} else {
			out.Regime = models.RegimeTrendingDown
		}
		out.Confidence = 40 + snap.ADX

	default:
		if out.Volatility > volatileATRPercent && rangePct > volatileRangePercent {
			out.Regime = models.RegimeVolatile
			out.Confidence = 60
		} else {
			out.Regime = models.RegimeRanging
			out.Confidence = 70 - snap.ADX
		}
	}

	out.Confidence = models.ClampConfidence(out.Confidence)
	return out
}

func recentRange(candles []models.Candle, bars int) (high, low float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	if len(candles) > bars {
		candles = candles[len(candles)-bars:]
	}
	high, low = candles[0].High, candles[0].Low
	for _, c := range candles[1:] {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
	}
	return high, low
}
