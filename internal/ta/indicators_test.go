package ta

import (
	"math"
	"testing"
	"time"

	"scalpd/internal/domain/models"
)

func syntheticCandles(n int, close func(i int) float64) []models.Candle {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		c := close(i)
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100,
			Asset:     "BTC",
			Timeframe: "15m",
		}
	}
	return out
}

func TestRSIMonotonicIncreaseApproaches100(t *testing.T) {
	candles := syntheticCandles(60, func(i int) float64 { return 100 + float64(i) })
	rsi := RSI(closes(candles), rsiPeriod)
	if math.IsNaN(rsi) {
		t.Fatal("expected computable RSI")
	}
	if rsi < 95 || rsi > 100 {
		t.Fatalf("expected RSI near 100 on monotonic rise, got %v", rsi)
	}
}

func TestRSIFlatSeriesIs50(t *testing.T) {
	candles := syntheticCandles(60, func(int) float64 { return 100 })
	if rsi := RSI(closes(candles), rsiPeriod); rsi != 50 {
		t.Fatalf("expected RSI 50 on flat series, got %v", rsi)
	}
}

func TestIndicatorsInsufficientDataReturnNaN(t *testing.T) {
	candles := syntheticCandles(5, func(i int) float64 { return 100 + float64(i) })
	snap := Snapshot(candles)

	if models.Valid(snap.EMA200) {
		t.Fatal("EMA200 should be NaN with 5 candles")
	}
	if models.Valid(snap.RSI) {
		t.Fatal("RSI should be NaN with 5 candles")
	}
	if models.Valid(snap.ADX) {
		t.Fatal("ADX should be NaN with 5 candles")
	}
	if models.Valid(snap.MACDSignal) {
		t.Fatal("MACD signal should be NaN with 5 candles")
	}
	if !models.Valid(snap.EMA5) {
		t.Fatal("EMA5 should be computable with 5 candles")
	}
	if snap.Price != candles[4].Close {
		t.Fatalf("snapshot price mismatch: %v", snap.Price)
	}
}

func TestEMAOrderingOnTrend(t *testing.T) {
	candles := syntheticCandles(250, func(i int) float64 { return 100 + float64(i)*0.5 })
	snap := Snapshot(candles)

	if !(snap.EMA5 > snap.EMA20 && snap.EMA20 > snap.EMA50 && snap.EMA50 > snap.EMA200) {
		t.Fatalf("expected fast EMAs above slow on an uptrend: 5=%v 20=%v 50=%v 200=%v",
			snap.EMA5, snap.EMA20, snap.EMA50, snap.EMA200)
	}
}

func TestMACDSignalReconstruction(t *testing.T) {
	candles := syntheticCandles(120, func(i int) float64 {
		return 100 + 10*math.Sin(float64(i)/8)
	})
	macd, signal, hist := MACD(closes(candles))
	if math.IsNaN(macd) || math.IsNaN(signal) {
		t.Fatal("expected computable MACD and signal")
	}
	if got := macd - signal; math.Abs(got-hist) > 1e-9 {
		t.Fatalf("histogram must equal macd-signal: %v vs %v", got, hist)
	}
}

func TestBollingerPercentB(t *testing.T) {
	candles := syntheticCandles(40, func(int) float64 { return 100 })
	upper, middle, lower, pb := Bollinger(closes(candles), bbPeriod, bbStdDev)
	if upper != 100 || middle != 100 || lower != 100 {
		t.Fatalf("flat series bands should collapse to the mean: %v %v %v", upper, middle, lower)
	}
	if pb != 0.5 {
		t.Fatalf("degenerate bands should yield %%B 0.5, got %v", pb)
	}
}

func TestVWAPVolumeWeighting(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := []models.Candle{
		{Timestamp: start, High: 10, Low: 10, Close: 10, Volume: 1},
		{Timestamp: start.Add(time.Minute), High: 20, Low: 20, Close: 20, Volume: 3},
	}
	// (10*1 + 20*3) / 4 = 17.5
	if v := VWAP(candles); math.Abs(v-17.5) > 1e-9 {
		t.Fatalf("expected VWAP 17.5, got %v", v)
	}
}

func TestOrderFlowImbalanceBounds(t *testing.T) {
	up := syntheticCandles(30, func(i int) float64 { return 100 + float64(i) })
	for i := range up {
		up[i].Close = up[i].High // every close at the high
	}
	of := OrderFlowImbalance(up, orderFlowBars)
	if of <= 0 || of > 1 {
		t.Fatalf("closes at highs should give positive imbalance <= 1, got %v", of)
	}

	down := syntheticCandles(30, func(i int) float64 { return 100 - float64(i)*0.1 })
	for i := range down {
		down[i].Close = down[i].Low
	}
	of = OrderFlowImbalance(down, orderFlowBars)
	if of >= 0 || of < -1 {
		t.Fatalf("closes at lows should give negative imbalance >= -1, got %v", of)
	}
}

func TestATRPositiveAndWilderSmoothed(t *testing.T) {
	candles := syntheticCandles(50, func(i int) float64 { return 100 + float64(i%4) })
	atr := ATR(candles, atrPeriod)
	if math.IsNaN(atr) || atr <= 0 {
		t.Fatalf("expected positive ATR, got %v", atr)
	}
}

func TestStochasticRangeBounds(t *testing.T) {
	candles := syntheticCandles(60, func(i int) float64 { return 100 + float64(i) })
	k, d := Stochastic(candles, stochPeriod, stochSmoothK, stochSmoothD)
	if k < 0 || k > 100 || d < 0 || d > 100 {
		t.Fatalf("stochastic out of [0,100]: k=%v d=%v", k, d)
	}
	if k < 50 {
		t.Fatalf("uptrend should keep %%K elevated, got %v", k)
	}
}
