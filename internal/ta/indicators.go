package ta

import (
	"math"

	"scalpd/internal/domain/models"
)

// Indicator parameters. These match the standard short-horizon settings and
// are fixed; per-asset tuning happens through strategy weights, not here.
const (
	rsiPeriod      = 14
	macdFast       = 12
	macdSlow       = 26
	macdSignal     = 9
	bbPeriod       = 20
	bbStdDev       = 2.0
	atrPeriod      = 14
	adxPeriod      = 14
	stochPeriod    = 14
	stochSmoothK   = 3
	stochSmoothD   = 3
	obvMAPeriod    = 20
	volumeMAPeriod = 20
	orderFlowBars  = 20
)

func nan() float64 { return math.NaN() }

func closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SMA returns the simple moving average of the last period values, or NaN.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return nan()
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// emaSeries returns the EMA series seeded with the SMA of the first period
// values. Result has len(values)-period+1 entries; nil when insufficient.
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)
	out = append(out, seed)

	k := 2.0 / float64(period+1)
	prev := seed
	for _, v := range values[period:] {
		prev = (v-prev)*k + prev
		out = append(out, prev)
	}
	return out
}

// EMA returns the latest exponential moving average, or NaN.
func EMA(values []float64, period int) float64 {
	s := emaSeries(values, period)
	if s == nil {
		return nan()
	}
	return s[len(s)-1]
}

// RSI returns the Wilder-smoothed relative strength index, or NaN. A series
// with zero average loss yields 100; all-equal closes yield 50.
func RSI(values []float64, period int) float64 {
	if len(values) < period+1 {
		return nan()
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgGain == 0 && avgLoss == 0 {
		return 50
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line, its signal line, and the histogram. The signal
// line is reconstructed from the full MACD series, not approximated.
func MACD(values []float64) (macd, signal, hist float64) {
	fast := emaSeries(values, macdFast)
	slow := emaSeries(values, macdSlow)
	if fast == nil || slow == nil {
		return nan(), nan(), nan()
	}
	// Align the fast series to the slow one; both end at the latest bar.
	offset := len(fast) - len(slow)
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}
	sig := emaSeries(line, macdSignal)
	macd = line[len(line)-1]
	if sig == nil {
		return macd, nan(), nan()
	}
	signal = sig[len(sig)-1]
	return macd, signal, macd - signal
}

// Bollinger returns upper/middle/lower bands and %B for the latest close.
func Bollinger(values []float64, period int, stdDev float64) (upper, middle, lower, percentB float64) {
	if len(values) < period {
		return nan(), nan(), nan(), nan()
	}
	window := values[len(values)-period:]
	middle = SMA(values, period)
	variance := 0.0
	for _, v := range window {
		d := v - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))
	upper = middle + stdDev*sd
	lower = middle - stdDev*sd
	price := values[len(values)-1]
	if upper == lower {
		percentB = 0.5
	} else {
		percentB = (price - lower) / (upper - lower)
	}
	return upper, middle, lower, percentB
}

func trueRange(cur, prev models.Candle) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR returns the Wilder-smoothed average true range, or NaN.
func ATR(candles []models.Candle, period int) float64 {
	if len(candles) < period+1 {
		return nan()
	}
	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += trueRange(candles[i], candles[i-1])
	}
	atr /= float64(period)
	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + trueRange(candles[i], candles[i-1])) / float64(period)
	}
	return atr
}

// ADX returns the average directional index with DI+ and DI-, or NaNs.
func ADX(candles []models.Candle, period int) (adx, plusDI, minusDI float64) {
	// Needs period bars for the first DX and another period to smooth ADX.
	if len(candles) < 2*period+1 {
		return nan(), nan(), nan()
	}

	var smTR, smPlusDM, smMinusDM float64
	dx := make([]float64, 0, len(candles)-period)

	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr := trueRange(candles[i], candles[i-1])

		if i <= period {
			smTR += tr
			smPlusDM += plusDM
			smMinusDM += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR - smTR/float64(period) + tr
			smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM
			smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM
		}

		if smTR == 0 {
			dx = append(dx, 0)
			plusDI, minusDI = 0, 0
			continue
		}
		plusDI = smPlusDM / smTR * 100
		minusDI = smMinusDM / smTR * 100
		sum := plusDI + minusDI
		if sum == 0 {
			dx = append(dx, 0)
			continue
		}
		dx = append(dx, math.Abs(plusDI-minusDI)/sum*100)
	}

	if len(dx) < period {
		return nan(), plusDI, minusDI
	}
	adx = 0
	for _, v := range dx[:period] {
		adx += v
	}
	adx /= float64(period)
	for _, v := range dx[period:] {
		adx = (adx*float64(period-1) + v) / float64(period)
	}
	return adx, plusDI, minusDI
}

// Stochastic returns the smoothed %K and %D oscillator values, or NaNs.
func Stochastic(candles []models.Candle, period, smoothK, smoothD int) (k, d float64) {
	need := period + smoothK + smoothD - 2
	if len(candles) < need {
		return nan(), nan()
	}

	rawK := func(end int) float64 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, c := range candles[end-period+1 : end+1] {
			lo = math.Min(lo, c.Low)
			hi = math.Max(hi, c.High)
		}
		if hi == lo {
			return 50
		}
		return (candles[end].Close - lo) / (hi - lo) * 100
	}

	// %K values smoothed over smoothK, then %D over smoothD of those.
	kVals := make([]float64, 0, smoothD)
	for j := 0; j < smoothD; j++ {
		end := len(candles) - 1 - j
		sum := 0.0
		for i := 0; i < smoothK; i++ {
			sum += rawK(end - i)
		}
		kVals = append(kVals, sum/float64(smoothK))
	}
	k = kVals[0]
	d = 0
	for _, v := range kVals {
		d += v
	}
	d /= float64(smoothD)
	return k, d
}

// VWAP returns the volume-weighted average of typical prices over the slice.
func VWAP(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return nan()
	}
	var pv, vol float64
	for _, c := range candles {
		pv += c.TypicalPrice() * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return nan()
	}
	return pv / vol
}

// OBV returns on-balance volume and its moving average. OBV itself only
// needs two candles; the MA is NaN until obvMAPeriod values accumulate.
func OBV(candles []models.Candle, maPeriod int) (obv, obvMA float64) {
	if len(candles) < 2 {
		return nan(), nan()
	}
	series := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			series[i] = series[i-1] + candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			series[i] = series[i-1] - candles[i].Volume
		default:
			series[i] = series[i-1]
		}
	}
	return series[len(series)-1], SMA(series, maPeriod)
}

// OrderFlowImbalance estimates buy/sell pressure in [-1, 1] from where each
// close sits inside its bar range, volume weighted. A proxy only.
func OrderFlowImbalance(candles []models.Candle, bars int) float64 {
	if len(candles) == 0 {
		return nan()
	}
	if len(candles) > bars {
		candles = candles[len(candles)-bars:]
	}
	var weighted, vol float64
	for _, c := range candles {
		r := c.Range()
		if r == 0 {
			continue
		}
		pos := 2*(c.Close-c.Low)/r - 1 // -1 close at low, +1 close at high
		weighted += pos * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return 0
	}
	return weighted / vol
}

// Snapshot computes the full indicator set for the candle series. Individual
// fields are NaN when the series is too short for them; the snapshot itself
// is always returned.
func Snapshot(candles []models.Candle) *models.IndicatorSnapshot {
	snap := &models.IndicatorSnapshot{
		EMA5: nan(), EMA9: nan(), EMA20: nan(), EMA50: nan(), EMA200: nan(),
		RSI:  nan(),
		MACD: nan(), MACDSignal: nan(), MACDHist: nan(),
		BBUpper: nan(), BBMiddle: nan(), BBLower: nan(), BBPercentB: nan(),
		ATR: nan(), ATRPercent: nan(),
		ADX: nan(), PlusDI: nan(), MinusDI: nan(),
		StochK: nan(), StochD: nan(),
		VWAP: nan(),
		OBV:  nan(), OBVMA: nan(),
		OrderFlow: nan(),
		Volume:    nan(), VolumeMA: nan(), VolumeRatio: nan(),
	}
	if len(candles) == 0 {
		return snap
	}

	last := candles[len(candles)-1]
	snap.Timestamp = last.Timestamp
	snap.Price = last.Close

	cl := closes(candles)
	snap.EMA5 = EMA(cl, 5)
	snap.EMA9 = EMA(cl, 9)
	snap.EMA20 = EMA(cl, 20)
	snap.EMA50 = EMA(cl, 50)
	snap.EMA200 = EMA(cl, 200)

	snap.RSI = RSI(cl, rsiPeriod)
	snap.MACD, snap.MACDSignal, snap.MACDHist = MACD(cl)
	snap.BBUpper, snap.BBMiddle, snap.BBLower, snap.BBPercentB = Bollinger(cl, bbPeriod, bbStdDev)

	snap.ATR = ATR(candles, atrPeriod)
	if models.Valid(snap.ATR) && last.Close > 0 {
		snap.ATRPercent = snap.ATR / last.Close * 100
	}

	snap.ADX, snap.PlusDI, snap.MinusDI = ADX(candles, adxPeriod)
	snap.StochK, snap.StochD = Stochastic(candles, stochPeriod, stochSmoothK, stochSmoothD)
	snap.VWAP = VWAP(candles)
	snap.OBV, snap.OBVMA = OBV(candles, obvMAPeriod)
	snap.OrderFlow = OrderFlowImbalance(candles, orderFlowBars)

	snap.Volume = last.Volume
	snap.VolumeMA = volumeMA(candles, volumeMAPeriod)
	if models.Valid(snap.VolumeMA) && snap.VolumeMA > 0 {
		snap.VolumeRatio = last.Volume / snap.VolumeMA
	}
	return snap
}

func volumeMA(candles []models.Candle, period int) float64 {
	if len(candles) < period {
		return nan()
	}
	sum := 0.0
	for _, c := range candles[len(candles)-period:] {
		sum += c.Volume
	}
	return sum / float64(period)
}
