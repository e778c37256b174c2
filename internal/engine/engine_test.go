package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"scalpd/internal/arbitrage"
	"scalpd/internal/domain/models"
	"scalpd/internal/domain/repository"
	"scalpd/internal/events"
	"scalpd/internal/market"
	"scalpd/internal/risk"
	"scalpd/internal/strategy"
	"scalpd/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type fakeMarketData struct {
	candles []models.Candle
	ticker  *models.Ticker
}

func (f *fakeMarketData) FetchCandles(_ context.Context, _ string, _ repository.Timeframe, _ int) ([]models.Candle, error) {
	return f.candles, nil
}

func (f *fakeMarketData) FetchTicker(_ context.Context, _ string) (*models.Ticker, error) {
	return f.ticker, nil
}

type fakeVenue struct {
	mu      sync.Mutex
	balance float64
	windows []models.MarketWindow
	orders  []string // "side:tokenID"
}

func (f *fakeVenue) GetBalance(context.Context) (float64, error) { return f.balance, nil }

func (f *fakeVenue) FindActiveWindows(_ context.Context, _ string, _ repository.Timeframe) ([]models.MarketWindow, error) {
	return f.windows, nil
}

func (f *fakeVenue) GetPrice(_ context.Context, _ string) (float64, error) { return 0.5, nil }

func (f *fakeVenue) PlaceLimitOrder(_ context.Context, tokenID, side string, _, _ float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, side+":"+tokenID)
	return "order-1", nil
}

func (f *fakeVenue) StartHeartbeat(context.Context) error { return nil }
func (f *fakeVenue) StopHeartbeat()                       {}

func (f *fakeVenue) orderList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.orders...)
}

type memStore struct {
	mu    sync.Mutex
	state *models.BotState
}

func (s *memStore) Save(_ context.Context, st *models.BotState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	return nil
}

func (s *memStore) Load(context.Context) (*models.BotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *memStore) Close() error { return nil }

func warmupCandles(n int) []models.Candle {
	start := time.Now().UTC().Add(-time.Duration(n) * 15 * time.Minute)
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      100, High: 101, Low: 99, Close: 100, Volume: 50,
			Asset: "BTC", Timeframe: "15m",
		}
	}
	return out
}

func testEngine(t *testing.T, venue *fakeVenue, store repository.StateStore) *Engine {
	t.Helper()
	log := testLogger(t)
	bus := events.NewBus(log)
	tracker := strategy.NewTracker(
		strategy.NameEMACross, strategy.NameRSIReversal, strategy.NameBreakout,
		strategy.NameVWAPReversion, strategy.NameOrderFlow)

	cfg := Config{
		Assets:                  []string{"BTC"},
		Timeframe:               repository.TF15m,
		CycleInterval:           time.Hour, // tests drive cycles manually
		MetricsInterval:         time.Hour,
		CycleTimeout:            5 * time.Second,
		WarmupCandles:           60,
		MinCandles:              50,
		StartBalance:            10000,
		FiveMinuteMinConfidence: 82,
		FiveMinuteMinEdge:       0.5,
	}
	return New(cfg, Deps{
		Buffer:     market.NewBuffer(bus),
		Ensemble:   strategy.NewEnsemble(tracker, 60, 3, log),
		Detector:   arbitrage.NewDetector(arbitrage.Config{MinEdgePercent: 1, MinConfidence: 0.4}, log),
		Risk: risk.NewManager(risk.Config{
			MaxPositionPercent: 2, MaxOpenPositions: 3, DailyLossLimitPercent: 3,
			MaxDrawdownPercent: 10, MaxTradesPerHour: 6, MinConfidence: 60,
			StopLossPercent: 1.5, ATRStopMultiplier: 1.5,
			TrailingActivationPercent: 1, TrailingDistancePercent: 0.5,
		}, 10000, time.Now().UTC()),
		Bus:        bus,
		MarketData: &fakeMarketData{candles: warmupCandles(60), ticker: &models.Ticker{Symbol: "BTC", LastPrice: 100}},
		Venue:      venue,
		Store:      store,
		Logger:     log,
	})
}

func TestCombineAgreementBoostsConfidence(t *testing.T) {
	tech := models.Signal{Direction: models.Long, Confidence: 70}
	arb := &models.ArbitrageSignal{Direction: models.Long, Confidence: 0.6}

	got, usedArb, skip, _ := Combine(tech, arb)
	if skip {
		t.Fatal("agreement must not skip")
	}
	if usedArb == nil {
		t.Fatal("agreement should carry the arbitrage signal")
	}
	want := 70 * agreementBoost
	if got.Confidence < want-0.01 || got.Confidence > want+0.01 {
		t.Fatalf("expected boosted confidence %v, got %v", want, got.Confidence)
	}
}

func TestCombineConflictForcesSkip(t *testing.T) {
	tech := models.Signal{Direction: models.Long, Confidence: 70}
	arb := &models.ArbitrageSignal{Direction: models.Short, Confidence: 0.9}

	_, _, skip, reason := Combine(tech, arb)
	if !skip {
		t.Fatal("directional conflict must skip the cycle")
	}
	if !strings.Contains(reason, "conflicts") {
		t.Fatalf("unexpected skip reason %q", reason)
	}
}

func TestCombineStrongArbOverridesNeutral(t *testing.T) {
	tech := models.Signal{Direction: models.Neutral, Confidence: 0}

	weak := &models.ArbitrageSignal{Direction: models.Long, Confidence: 0.5}
	got, usedArb, skip, _ := Combine(tech, weak)
	if skip || got.Direction != models.Neutral || usedArb != nil {
		t.Fatal("weak arbitrage must not override neutral technical")
	}

	strong := &models.ArbitrageSignal{Direction: models.Long, Confidence: 0.8}
	got, usedArb, skip, _ = Combine(tech, strong)
	if skip || got.Direction != models.Long || usedArb == nil {
		t.Fatalf("strong arbitrage should drive the entry, got %s", got.Direction)
	}
	if got.Confidence != arbOverrideConfidence {
		t.Fatalf("expected override confidence %v, got %v", float64(arbOverrideConfidence), got.Confidence)
	}
}

func TestFiveMinuteGate(t *testing.T) {
	e := testEngine(t, &fakeVenue{balance: 10000}, nil)
	arb := &models.ArbitrageSignal{Timeframe: "5m", EdgePercentage: 0.8}

	if ok, _ := e.fiveMinuteGate(models.Signal{Confidence: 85}, arb, false); !ok {
		t.Fatal("qualifying 5m entry should pass")
	}
	if ok, _ := e.fiveMinuteGate(models.Signal{Confidence: 75}, arb, false); ok {
		t.Fatal("confidence below 82 must fail the 5m gate")
	}
	lowEdge := &models.ArbitrageSignal{Timeframe: "5m", EdgePercentage: 0.2}
	if ok, _ := e.fiveMinuteGate(models.Signal{Confidence: 90}, lowEdge, false); ok {
		t.Fatal("edge below 0.5%% must fail the 5m gate")
	}
	if ok, _ := e.fiveMinuteGate(models.Signal{Confidence: 90}, arb, true); ok {
		t.Fatal("existing position must fail the 5m gate")
	}
	if ok, _ := e.fiveMinuteGate(models.Signal{Confidence: 10}, &models.ArbitrageSignal{Timeframe: "15m"}, false); !ok {
		t.Fatal("gate only applies to 5m windows")
	}
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	venue := &fakeVenue{balance: 10000}
	a := testEngine(t, venue, nil)

	now := time.Now().UTC()
	pos := &models.Position{
		ID: "p1", Asset: "BTC", Direction: models.Long, Status: models.PositionOpen,
		EntryPrice: 100, Quantity: 2, RemainingQty: 2, ValueUSD: 200,
		CurrentStopLoss: 98.5, OpenedAt: now,
	}
	a.mu.Lock()
	a.state.Positions["BTC"] = pos
	a.state.Balance = 9800
	a.state.Trades = append(a.state.Trades, models.Trade{ID: "t1", Asset: "BTC", PnLUSD: 50, PnLPercent: 2})
	a.mu.Unlock()
	a.ensemble.Tracker().RecordTrade(strategy.NameEMACross, 2.0)
	a.risk.RecordTradeClosed(50, 9800, now)
	a.risk.RecordTradeOpened(now)

	snap := a.SerializeState()

	b := testEngine(t, venue, nil)
	b.RestoreState(snap)
	restored := b.SerializeState()

	if restored.Balance != 9800 {
		t.Fatalf("balance: expected 9800, got %v", restored.Balance)
	}
	got, ok := restored.Positions["BTC"]
	if !ok {
		t.Fatal("open position lost in round trip")
	}
	if got.ID != pos.ID || got.EntryPrice != pos.EntryPrice || got.CurrentStopLoss != pos.CurrentStopLoss {
		t.Fatalf("position fields diverged: %+v", got)
	}
	if len(restored.Trades) != 1 || restored.Trades[0].ID != "t1" {
		t.Fatalf("trade history diverged: %+v", restored.Trades)
	}
	if restored.Daily.Trades != 1 || restored.Daily.PnLUSD != 50 {
		t.Fatalf("daily counters diverged: %+v", restored.Daily)
	}
	if restored.TradesThisHour != 1 {
		t.Fatalf("hourly counter diverged: %d", restored.TradesThisHour)
	}
	if w := restored.StrategyWeights[strategy.NameEMACross]; w != snap.StrategyWeights[strategy.NameEMACross] {
		t.Fatalf("strategy weights diverged: %v", restored.StrategyWeights)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	venue := &fakeVenue{balance: 10000}
	e := testEngine(t, venue, &memStore{})
	ctx := context.Background()

	if err := e.Pause(); err != ErrNotRunning {
		t.Fatalf("pause before start: expected ErrNotRunning, got %v", err)
	}
	if err := e.Resume(); err != ErrNotPaused {
		t.Fatalf("resume before start: expected ErrNotPaused, got %v", err)
	}

	if err := e.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if e.Status() != models.StatusRunning {
		t.Fatalf("expected RUNNING, got %s", e.Status())
	}
	if err := e.Start(ctx); err != ErrAlreadyRunning {
		t.Fatalf("double start: expected ErrAlreadyRunning, got %v", err)
	}

	if err := e.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if e.Status() != models.StatusPaused {
		t.Fatalf("expected PAUSED, got %s", e.Status())
	}
	if err := e.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if err := e.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if e.Status() != models.StatusStopped {
		t.Fatalf("expected STOPPED, got %s", e.Status())
	}
}

func TestStopClosesAllPositionsSynchronously(t *testing.T) {
	venue := &fakeVenue{balance: 10000}
	store := &memStore{}
	e := testEngine(t, venue, store)
	ctx := context.Background()

	if err := e.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	e.mu.Lock()
	e.state.Positions["BTC"] = &models.Position{
		ID: "p1", Asset: "BTC", Direction: models.Long, Status: models.PositionOpen,
		EntryPrice: 100, Quantity: 2, RemainingQty: 2, ValueUSD: 200,
		TokenID: "tok-up", OpenedAt: time.Now().UTC(),
	}
	e.state.Balance -= 200
	e.mu.Unlock()

	if err := e.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if n := e.openPositionCount(); n != 0 {
		t.Fatalf("expected all positions closed, %d remain", n)
	}
	sold := false
	for _, o := range venue.orderList() {
		if o == "SELL:tok-up" {
			sold = true
		}
	}
	if !sold {
		t.Fatalf("expected a venue SELL order, got %v", venue.orderList())
	}
	if store.state == nil {
		t.Fatal("stop must persist state")
	}

	e.mu.RLock()
	trades := len(e.state.Trades)
	e.mu.RUnlock()
	if trades != 1 {
		t.Fatalf("expected 1 closed trade, got %d", trades)
	}
}

func TestMonitorPositionsConcurrentWithDashboard(t *testing.T) {
	venue := &fakeVenue{balance: 10000}
	e := testEngine(t, venue, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	e.buffer.RecordPrice("BTC", 101.2, now)
	e.mu.Lock()
	e.state.Positions["BTC"] = &models.Position{
		ID: "p1", Asset: "BTC", Timeframe: "15m", Direction: models.Long,
		Status: models.PositionOpen, EntryPrice: 100, Quantity: 2,
		RemainingQty: 2, ValueUSD: 200, CurrentStopLoss: 98.5,
		TakeProfits: e.risk.TakeProfitLevels(100, models.Long),
		OpenedAt:    now,
	}
	e.mu.Unlock()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = e.Dashboard()
				_ = e.Positions()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		e.monitorPositions(ctx)
	}
	close(stop)
	wg.Wait()

	e.mu.RLock()
	pos, open := e.state.Positions["BTC"]
	e.mu.RUnlock()
	if !open {
		t.Fatal("position should still be open at this price")
	}
	if !pos.Trailing.Activated {
		t.Fatal("trailing stop should have activated above the profit threshold")
	}
	if pos.CurrentStopLoss <= 98.5 {
		t.Fatalf("trailing stop never moved: %v", pos.CurrentStopLoss)
	}
	if pos.RemainingQty >= pos.Quantity {
		t.Fatal("first take-profit level should have reduced the position")
	}
}

func TestClosedWindowTradeFeedsAccuracy(t *testing.T) {
	venue := &fakeVenue{balance: 10000}
	e := testEngine(t, venue, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	pos := &models.Position{
		ID: "p1", Asset: "BTC", Timeframe: "15m", Direction: models.Long,
		Status: models.PositionOpen, EntryPrice: 100, Quantity: 2,
		RemainingQty: 2, ValueUSD: 200, WindowID: "w1", TokenID: "tok-up",
		OpenedAt: now,
	}
	e.mu.Lock()
	e.state.Positions["BTC"] = pos
	e.mu.Unlock()

	e.closePosition(ctx, pos, 102, "window resolved", now)

	hitRate, samples := e.detector.Accuracy().Stats("BTC", "15m")
	if samples != 1 {
		t.Fatalf("expected 1 recorded outcome, got %d", samples)
	}
	if hitRate != 1 {
		t.Fatalf("winning trade should record a hit, rate = %v", hitRate)
	}
	if acc := e.Dashboard().Accuracy; acc["BTC|15m"] != 1 {
		t.Fatalf("dashboard accuracy not populated: %v", acc)
	}
}

func TestAlertRingBounded(t *testing.T) {
	r := newAlertRing()
	now := time.Now()
	for i := 0; i < alertCapacity+50; i++ {
		r.add("WARNING", "test", "overflow", now)
	}
	if got := len(r.list(0)); got != alertCapacity {
		t.Fatalf("expected ring capped at %d, got %d", alertCapacity, got)
	}
	if got := r.list(5); len(got) != 5 {
		t.Fatalf("expected 5 alerts, got %d", len(got))
	}
}
