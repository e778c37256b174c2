package risk

import (
	"math"
	"strings"
	"testing"
	"time"

	"scalpd/internal/domain/models"
)

func testConfig() Config {
	return Config{
		MaxPositionPercent:        2,
		MaxOpenPositions:          3,
		DailyLossLimitPercent:     3,
		MaxDrawdownPercent:        10,
		MaxTradesPerHour:          6,
		MinConfidence:             70,
		StopLossPercent:           1.5,
		ATRStopMultiplier:         1.5,
		TrailingActivationPercent: 1.0,
		TrailingDistancePercent:   0.5,
	}
}

func TestPositionSizeMultipliersAndCap(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	m := NewManager(testConfig(), 10000, now)
	base := 2.0 / 100 * 10000 // 200

	// confidence 95 (1.5), volatility 10 (1.2), overlap (1.5), no drawdown:
	// 200 * 2.7 = 540, capped at 2x base = 400.
	size := m.PositionSize(10000, 95, 10, models.SessionOverlap, 0)
	if math.Abs(size-2*base) > 1e-9 {
		t.Fatalf("expected capped size %v, got %v", 2*base, size)
	}

	// confidence 80 (1.0), mid volatility (1.0), asian (0.8): 160.
	size = m.PositionSize(10000, 80, 30, models.SessionAsian, 0)
	if math.Abs(size-base*0.8) > 1e-9 {
		t.Fatalf("expected %v, got %v", base*0.8, size)
	}

	// Drawdown over 5%% halves the size.
	withDD := m.PositionSize(10000, 80, 30, models.SessionAsian, 6)
	if math.Abs(withDD-size/2) > 1e-9 {
		t.Fatalf("expected drawdown penalty %v, got %v", size/2, withDD)
	}
}

func TestConfidenceMultiplierAnchors(t *testing.T) {
	cases := []struct{ conf, want float64 }{
		{65, 0.5},
		{80, 1.0},
		{95, 1.5},
		{99, 1.5},
		{50, 0.5},
	}
	for _, tc := range cases {
		if got := confidenceMultiplier(tc.conf); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("confidence %v: expected %v, got %v", tc.conf, tc.want, got)
		}
	}
}

func TestCanOpenTradeReportsAllReasons(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	m := NewManager(testConfig(), 10000, now)
	m.RecordTradeClosed(-400, 9600, now) // past the 3% daily loss limit

	ok, reasons := m.CanOpenTrade(AdmissionInput{
		Confidence:    50, // below minimum
		Balance:       9600,
		OpenPositions: 3,  // at cap
		Drawdown:      12, // past limit
		Now:           now,
	})
	if ok {
		t.Fatal("expected rejection")
	}
	if len(reasons) != 4 {
		t.Fatalf("expected all 4 violations reported, got %d: %v", len(reasons), reasons)
	}
	for _, want := range []string{"confidence", "daily loss", "drawdown", "open positions"} {
		found := false
		for _, r := range reasons {
			if strings.Contains(r, want) {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing %q violation in %v", want, reasons)
		}
	}
}

func TestCanOpenTradeHourlyCapResets(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.MaxTradesPerHour = 2
	m := NewManager(cfg, 10000, now)

	m.RecordTradeOpened(now)
	m.RecordTradeOpened(now.Add(time.Minute))

	ok, reasons := m.CanOpenTrade(AdmissionInput{Confidence: 90, Balance: 10000, Now: now.Add(2 * time.Minute)})
	if ok {
		t.Fatalf("expected hourly cap rejection, reasons %v", reasons)
	}

	ok, reasons = m.CanOpenTrade(AdmissionInput{Confidence: 90, Balance: 10000, Now: now.Add(2 * time.Hour)})
	if !ok {
		t.Fatalf("counter should reset after an idle hour, reasons %v", reasons)
	}
}

func TestDailyResetExactlyOncePerDay(t *testing.T) {
	now := time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)
	m := NewManager(testConfig(), 10000, now)
	m.RecordTradeClosed(-100, 9900, now)

	if rollup := m.RolloverIfNeeded(9900, now.Add(30*time.Minute)); rollup != nil {
		t.Fatal("no rollover before midnight")
	}

	next := time.Date(2025, 6, 3, 0, 0, 1, 0, time.UTC)
	rollup := m.RolloverIfNeeded(9900, next)
	if rollup == nil {
		t.Fatal("expected rollover after midnight")
	}
	if rollup.Date != "2025-06-02" || rollup.PnLUSD != -100 || rollup.Trades != 1 {
		t.Fatalf("unexpected rollup %+v", rollup)
	}

	if again := m.RolloverIfNeeded(9900, next.Add(time.Hour)); again != nil {
		t.Fatal("rollover must fire exactly once per day")
	}

	d := m.Daily()
	if d.PnLUSD != 0 || d.Trades != 0 || d.StartBalance != 9900 {
		t.Fatalf("fresh day must exclude prior trades: %+v", d)
	}
}

func TestStopLossRegimeMultipliers(t *testing.T) {
	m := NewManager(testConfig(), 10000, time.Now())

	// ATR 100 at entry 10000: volatile 2.0x -> 9800, ranging 1.0x -> 9900.
	if got := m.StopLoss(10000, models.Long, 100, models.RegimeVolatile); got != 9800 {
		t.Fatalf("volatile stop: expected 9800, got %v", got)
	}
	if got := m.StopLoss(10000, models.Long, 100, models.RegimeRanging); got != 9900 {
		t.Fatalf("ranging stop: expected 9900, got %v", got)
	}
	// Short stops sit above entry.
	if got := m.StopLoss(10000, models.Short, 100, models.RegimeRanging); got != 10100 {
		t.Fatalf("short stop: expected 10100, got %v", got)
	}
	// NaN ATR falls back to fixed percent.
	if got := m.StopLoss(10000, models.Long, math.NaN(), models.RegimeRanging); got != 10000*(1-0.015) {
		t.Fatalf("fallback stop: got %v", got)
	}
}

func TestTrailingStopMonotonicLong(t *testing.T) {
	m := NewManager(testConfig(), 10000, time.Now())
	pos := &models.Position{
		Direction:       models.Long,
		EntryPrice:      100,
		CurrentStopLoss: 98.5,
	}

	m.UpdateTrailing(pos, 100.5) // +0.5%, below activation
	if pos.Trailing.Activated {
		t.Fatal("must not activate below threshold")
	}

	m.UpdateTrailing(pos, 101.5) // +1.5%, activates
	if !pos.Trailing.Activated {
		t.Fatal("expected activation")
	}
	first := pos.CurrentStopLoss
	if first <= 98.5 {
		t.Fatalf("stop should have tightened, got %v", first)
	}

	m.UpdateTrailing(pos, 103)
	second := pos.CurrentStopLoss
	if second < first {
		t.Fatalf("long trailing stop moved down: %v -> %v", first, second)
	}

	m.UpdateTrailing(pos, 101) // pullback must never loosen the stop
	if pos.CurrentStopLoss < second {
		t.Fatalf("pullback loosened the stop: %v -> %v", second, pos.CurrentStopLoss)
	}
}

func TestTrailingStopMonotonicShort(t *testing.T) {
	m := NewManager(testConfig(), 10000, time.Now())
	pos := &models.Position{
		Direction:       models.Short,
		EntryPrice:      100,
		CurrentStopLoss: 101.5,
	}

	m.UpdateTrailing(pos, 98.5) // +1.5% profit for a short
	if !pos.Trailing.Activated {
		t.Fatal("expected activation")
	}
	first := pos.CurrentStopLoss

	m.UpdateTrailing(pos, 97)
	if pos.CurrentStopLoss > first {
		t.Fatalf("short trailing stop moved up: %v -> %v", first, pos.CurrentStopLoss)
	}
}

func TestTakeProfitsEachTriggerOnce(t *testing.T) {
	m := NewManager(testConfig(), 10000, time.Now())
	pos := &models.Position{
		Direction:   models.Long,
		EntryPrice:  100,
		TakeProfits: m.TakeProfitLevels(100, models.Long),
	}

	total := 0.0
	for _, lvl := range pos.TakeProfits {
		total += lvl.PositionReduction
	}
	if total > 1.0+1e-9 {
		t.Fatalf("reductions must sum to at most 1.0, got %v", total)
	}

	hit := m.CheckTakeProfits(pos, 101) // first level at +1%
	if len(hit) != 1 || hit[0] != 0 {
		t.Fatalf("expected first level only, got %v", hit)
	}
	if again := m.CheckTakeProfits(pos, 101.5); len(again) != 0 {
		t.Fatalf("triggered level fired twice: %v", again)
	}
	rest := m.CheckTakeProfits(pos, 104)
	if len(rest) != 2 {
		t.Fatalf("expected remaining two levels, got %v", rest)
	}
}

func TestStopHit(t *testing.T) {
	long := &models.Position{Direction: models.Long, CurrentStopLoss: 99}
	if StopHit(long, 99.5) {
		t.Fatal("long stop not reached yet")
	}
	if !StopHit(long, 98.9) {
		t.Fatal("long stop should trigger at or below level")
	}
	short := &models.Position{Direction: models.Short, CurrentStopLoss: 101}
	if !StopHit(short, 101.2) {
		t.Fatal("short stop should trigger above level")
	}
}
