package engine

import (
	"context"
	"fmt"
	"time"

	"scalpd/internal/domain/models"
	"scalpd/internal/events"
	"scalpd/internal/strategy"
	"scalpd/internal/ta"
	"scalpd/pkg/logger"
)

const fetchCandleLimit = 100

func (e *Engine) cycleLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.Status() != models.StatusRunning {
				continue
			}
			if !e.cycleBusy.CompareAndSwap(false, true) {
				e.logger.Warn("previous cycle still running, skipping tick")
				continue
			}
			e.runCycle(ctx)
			e.cycleBusy.Store(false)
		}
	}
}

// runCycle executes one full trading cycle. Every per-asset and per-position
// step is isolated: one failure degrades that unit, never the cycle.
func (e *Engine) runCycle(ctx context.Context) {
	started := time.Now()
	cycleCtx, cancel := context.WithTimeout(ctx, e.cfg.CycleTimeout)
	defer cancel()

	for _, asset := range e.cfg.Assets {
		e.refreshData(cycleCtx, asset)
		e.analyzeAsset(cycleCtx, asset)
	}

	e.monitorPositions(cycleCtx)

	if err := e.saveState(cycleCtx); err != nil {
		e.alert("WARNING", "state", fmt.Sprintf("state save failed: %v", err))
	}

	elapsed := time.Since(started)
	if cycleCtx.Err() != nil {
		e.alert("WARNING", "cycle", fmt.Sprintf("cycle exceeded %s deadline", e.cfg.CycleTimeout))
	}
	if e.metrics != nil {
		e.metrics.RecordCycle(elapsed.Seconds())
	}
	e.bus.Publish(events.TypeCycleComplete, map[string]interface{}{
		"duration_ms": elapsed.Milliseconds(),
	})
}

// refreshData pulls fresh candles and ticker data. Failures degrade to stale
// buffered data with a warning.
func (e *Engine) refreshData(ctx context.Context, asset string) {
	started := time.Now()
	candles, err := e.marketData.FetchCandles(ctx, asset, e.cfg.Timeframe, fetchCandleLimit)
	if err != nil {
		e.alert("WARNING", "market-data", fmt.Sprintf("candle fetch for %s failed, using stale data: %v", asset, err))
	} else {
		for _, c := range candles {
			e.buffer.AppendCandle(c)
		}
	}

	ticker, err := e.marketData.FetchTicker(ctx, asset)
	if err != nil {
		e.alert("WARNING", "market-data", fmt.Sprintf("ticker fetch for %s failed: %v", asset, err))
	} else {
		now := time.Now().UTC()
		e.buffer.RecordPrice(asset, ticker.LastPrice, now)
		e.detector.RecordPrice(asset, ticker.LastPrice, now)
		e.mu.Lock()
		e.tickers[asset] = ticker
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.SetLastPrice(asset, ticker.LastPrice)
		}
	}
	if e.metrics != nil {
		e.metrics.RecordLatency("refresh_data", time.Since(started).Seconds())
	}
}

// analyzeAsset runs the full decision pipeline for one asset.
func (e *Engine) analyzeAsset(ctx context.Context, asset string) {
	defer func() {
		if r := recover(); r != nil {
			e.alert("CRITICAL", "analysis", fmt.Sprintf("analysis for %s panicked: %v", asset, r))
		}
	}()

	now := time.Now().UTC()
	tf := string(e.cfg.Timeframe)

	candles := e.buffer.Candles(asset, tf, e.cfg.WarmupCandles)
	var tech models.Signal
	var regime models.RegimeAnalysis
	session := ta.ClassifySession(now)

	if len(candles) < e.cfg.MinCandles {
		// Not an error: analysis stands down until enough bars exist.
		tech = models.NeutralSignal(asset, "ensemble", fmt.Sprintf("only %d of %d required candles", len(candles), e.cfg.MinCandles), now)
	} else {
		snap := ta.Snapshot(candles)
		regime = ta.ClassifyRegime(candles, snap)
		tech = e.ensemble.Analyze(strategy.Input{
			Asset:     asset,
			Timeframe: tf,
			Candles:   candles,
			Snapshot:  snap,
			Regime:    regime,
			Session:   session,
			Now:       now,
		})
		e.signals.add(tech)
		e.bus.Publish(events.TypeSignal, tech)
		if e.metrics != nil {
			e.metrics.RecordSignal(string(tech.Direction))
		}
		e.pushSignal(tech)
	}

	arb := e.scanArbitrage(ctx, asset, now)

	combined, arbUsed, skip, reason := Combine(tech, arb)
	if skip {
		e.logger.Info("cycle skip",
			logger.String("asset", asset),
			logger.String("reason", reason))
		return
	}
	if combined.Direction == models.Neutral {
		return
	}

	e.tryExecute(ctx, asset, combined, arbUsed, regime, session, now)
}

// scanArbitrage evaluates every active window for the asset and returns the
// best actionable signal.
func (e *Engine) scanArbitrage(ctx context.Context, asset string, now time.Time) *models.ArbitrageSignal {
	defer func() {
		if r := recover(); r != nil {
			e.alert("CRITICAL", "arbitrage", fmt.Sprintf("arbitrage scan for %s panicked: %v", asset, r))
		}
	}()

	windows, err := e.venue.FindActiveWindows(ctx, asset, e.cfg.Timeframe)
	if err != nil {
		e.alert("WARNING", "venue", fmt.Sprintf("window scan for %s failed: %v", asset, err))
		return nil
	}

	var best *models.ArbitrageSignal
	for _, w := range windows {
		sig := e.detector.AnalyzeWindow(w, now)
		if sig == nil {
			continue
		}
		e.bus.Publish(events.TypeArbitrageDetected, sig)
		if best == nil || sig.Confidence > best.Confidence {
			best = sig
		}
	}
	return best
}

// pushSignal forwards a signal to the analytics sink off the hot path.
func (e *Engine) pushSignal(sig models.Signal) {
	if e.sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.sink.InsertSignal(ctx, &sig); err != nil {
			e.logger.Warn("signal insert failed", logger.Error(err))
		}
	}()
}
