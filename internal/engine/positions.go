package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"scalpd/internal/domain/models"
	"scalpd/internal/events"
	"scalpd/internal/risk"
	"scalpd/pkg/logger"
)

// tryExecute runs admission control and places the order for a combined
// entry signal.
func (e *Engine) tryExecute(ctx context.Context, asset string, combined models.Signal, arb *models.ArbitrageSignal, regime models.RegimeAnalysis, session models.Session, now time.Time) {
	e.mu.RLock()
	_, hasPosition := e.state.Positions[asset]
	balance := e.state.Balance
	openCount := len(e.state.Positions)
	drawdown := e.state.Drawdown()
	e.mu.RUnlock()

	if hasPosition {
		e.logger.Debug("position already open", logger.String("asset", asset))
		return
	}

	if rollup := e.risk.RolloverIfNeeded(balance, now); rollup != nil {
		e.pushRollup(rollup)
	}

	if ok, reason := e.fiveMinuteGate(combined, arb, hasPosition); !ok {
		e.logger.Info("5m gate rejected entry",
			logger.String("asset", asset),
			logger.String("reason", reason))
		return
	}

	ok, reasons := e.risk.CanOpenTrade(risk.AdmissionInput{
		Confidence:    combined.Confidence,
		Balance:       balance,
		OpenPositions: openCount,
		Drawdown:      drawdown,
		Now:           now,
	})
	if !ok {
		// Expected and non-alarming; log the complete picture and move on.
		e.logger.Info("trade admission rejected",
			logger.String("asset", asset),
			logger.Strings("reasons", reasons))
		return
	}

	price, havePrice := e.buffer.LastPrice(asset)
	if !havePrice || price <= 0 {
		e.alert("WARNING", "execution", fmt.Sprintf("no price available for %s", asset))
		return
	}

	// Pattern memory scales sizing by how this setup performed before.
	patternID := ""
	patternWeight := 1.0
	if combined.Snapshot != nil {
		patternID = models.PatternSignature(combined.Snapshot, regime.Regime, session, string(e.cfg.Timeframe))
		e.mu.RLock()
		if p, found := e.state.Patterns[patternID]; found {
			patternWeight = p.Weight
		}
		e.mu.RUnlock()
	}

	volScore := regime.Volatility * 10
	size := e.risk.PositionSize(balance, combined.Confidence, volScore, session, drawdown)
	size *= patternWeight
	if max := 2 * e.risk.BaseSize(balance); size > max {
		size = max
	}
	if size <= 0 || size > balance {
		e.logger.Info("position size not viable",
			logger.String("asset", asset),
			logger.Any("size", size))
		return
	}

	tokenID, windowID, windowEnd, err := e.resolveToken(ctx, asset, combined.Direction, arb)
	if err != nil {
		e.logger.Info("no tradable window",
			logger.String("asset", asset),
			logger.Error(err))
		return
	}

	tokenPrice, err := e.venue.GetPrice(ctx, tokenID)
	if err != nil {
		e.alert("CRITICAL", "venue", fmt.Sprintf("token price fetch failed for %s: %v", asset, err))
		return
	}

	if _, err := e.venue.PlaceLimitOrder(ctx, tokenID, "BUY", tokenPrice, size); err != nil {
		// Order rejected: no position is recorded, the cycle continues.
		e.alert("CRITICAL", "execution", fmt.Sprintf("order rejected for %s: %v", asset, err))
		return
	}

	quantity := size / price
	var atr float64 = math.NaN()
	if combined.Snapshot != nil {
		atr = combined.Snapshot.ATR
	}
	pos := &models.Position{
		ID:              uuid.NewString(),
		Asset:           asset,
		Timeframe:       string(e.cfg.Timeframe),
		Direction:       combined.Direction,
		Status:          models.PositionOpen,
		EntryPrice:      price,
		Quantity:        quantity,
		RemainingQty:    quantity,
		ValueUSD:        size,
		CurrentStopLoss: e.risk.StopLoss(price, combined.Direction, atr, regime.Regime),
		TakeProfits:     e.risk.TakeProfitLevels(price, combined.Direction),
		Confidence:      combined.Confidence,
		Strategy:        combined.Strategy,
		PatternID:       patternID,
		Regime:          regime.Regime,
		Session:         session,
		WindowID:        windowID,
		WindowEndsAt:    windowEnd,
		TokenID:         tokenID,
		OpenedAt:        now,
		EntrySignal:     &combined,
	}

	e.mu.Lock()
	e.state.Positions[asset] = pos
	e.state.Balance -= size
	e.mu.Unlock()

	e.risk.RecordTradeOpened(now)
	if e.metrics != nil {
		e.metrics.SetOpenPositions(e.openPositionCount())
		e.metrics.SetBalance(e.balance())
	}
	e.logger.Info("trade opened",
		logger.String("asset", asset),
		logger.String("direction", string(pos.Direction)),
		logger.Any("size_usd", size),
		logger.Any("entry", price))
	e.bus.Publish(events.TypeTradeOpened, pos)
}

// resolveToken picks the venue token backing the entry: the arbitrage
// signal's token when present, otherwise the matching side of the first
// non-fallback active window.
func (e *Engine) resolveToken(ctx context.Context, asset string, dir models.Direction, arb *models.ArbitrageSignal) (tokenID, windowID string, endsAt time.Time, err error) {
	if arb != nil {
		return arb.TokenID, arb.WindowID, arb.WindowEndsAt, nil
	}

	windows, err := e.venue.FindActiveWindows(ctx, asset, e.cfg.Timeframe)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("find windows: %w", err)
	}
	for _, w := range windows {
		if w.TimeframeFallback {
			e.logger.Warn("ignoring fallback window for execution",
				logger.String("window", w.ID))
			continue
		}
		if dir == models.Short {
			return w.DownTokenID, w.ID, w.EndTime, nil
		}
		return w.UpTokenID, w.ID, w.EndTime, nil
	}
	return "", "", time.Time{}, fmt.Errorf("no active %s window for %s", e.cfg.Timeframe, asset)
}

// monitorPositions walks every open position: trailing stops, take-profit
// levels, stop-loss hits, and window resolution. One position's failure
// never blocks the others.
func (e *Engine) monitorPositions(ctx context.Context) {
	e.mu.RLock()
	positions := make([]*models.Position, 0, len(e.state.Positions))
	for _, p := range e.state.Positions {
		positions = append(positions, p)
	}
	e.mu.RUnlock()

	now := time.Now().UTC()
	for _, pos := range positions {
		e.monitorPosition(ctx, pos, now)
	}

	e.bus.Publish(events.TypePositionsMonitored, map[string]interface{}{
		"count": len(positions),
	})
}

func (e *Engine) monitorPosition(ctx context.Context, pos *models.Position, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.alert("CRITICAL", "monitor", fmt.Sprintf("monitoring %s panicked: %v", pos.Asset, r))
		}
	}()

	price, ok := e.buffer.LastPrice(pos.Asset)
	if !ok || price <= 0 {
		return
	}

	if !pos.WindowEndsAt.IsZero() && now.After(pos.WindowEndsAt) {
		e.closePosition(ctx, pos, price, "window resolved", now)
		return
	}

	// Trailing and take-profit checks mutate the position; the dashboard and
	// metrics loop read it concurrently, so the mutation runs under the
	// state lock.
	e.mu.Lock()
	e.risk.UpdateTrailing(pos, price)
	hits := e.risk.CheckTakeProfits(pos, price)
	e.mu.Unlock()

	for _, idx := range hits {
		e.reducePosition(ctx, pos, price, idx, now)
		e.mu.RLock()
		remaining := pos.RemainingQty
		e.mu.RUnlock()
		if remaining <= pos.Quantity*1e-6 {
			e.closePosition(ctx, pos, price, "final take profit", now)
			return
		}
	}

	e.mu.RLock()
	stopped := risk.StopHit(pos, price)
	e.mu.RUnlock()
	if stopped {
		e.closePosition(ctx, pos, price, "stop loss", now)
	}
}

// reducePosition realizes one take-profit level's partial exit.
func (e *Engine) reducePosition(ctx context.Context, pos *models.Position, price float64, levelIdx int, now time.Time) {
	lvl := pos.TakeProfits[levelIdx]
	qty := pos.Quantity * lvl.PositionReduction
	if qty > pos.RemainingQty {
		qty = pos.RemainingQty
	}

	diff := price - pos.EntryPrice
	if pos.Direction == models.Short {
		diff = -diff
	}
	realized := diff * qty

	if pos.TokenID != "" {
		if tokenPrice, err := e.venue.GetPrice(ctx, pos.TokenID); err == nil {
			if _, err := e.venue.PlaceLimitOrder(ctx, pos.TokenID, "SELL", tokenPrice, qty); err != nil {
				e.alert("CRITICAL", "execution", fmt.Sprintf("partial exit rejected for %s: %v", pos.Asset, err))
			}
		}
	}

	e.mu.Lock()
	pos.RemainingQty -= qty
	pos.RealizedPnL += realized
	e.mu.Unlock()

	e.logger.Info("take profit level hit",
		logger.String("asset", pos.Asset),
		logger.Int("level", levelIdx+1),
		logger.Any("realized_usd", realized))
}

// closePosition closes the remainder of a position and records the trade.
func (e *Engine) closePosition(ctx context.Context, pos *models.Position, price float64, reason string, now time.Time) {
	e.mu.Lock()
	if pos.Status != models.PositionOpen {
		e.mu.Unlock()
		return
	}
	pos.Status = models.PositionClosing
	e.mu.Unlock()

	if pos.TokenID != "" {
		tokenPrice, err := e.venue.GetPrice(ctx, pos.TokenID)
		if err == nil {
			_, err = e.venue.PlaceLimitOrder(ctx, pos.TokenID, "SELL", tokenPrice, pos.RemainingQty)
		}
		if err != nil {
			e.alert("CRITICAL", "execution", fmt.Sprintf("close order for %s failed: %v", pos.Asset, err))
		}
	}

	diff := price - pos.EntryPrice
	if pos.Direction == models.Short {
		diff = -diff
	}
	pnlUSD := pos.RealizedPnL + diff*pos.RemainingQty
	pnlPct := 0.0
	if pos.ValueUSD > 0 {
		pnlPct = pnlUSD / pos.ValueUSD * 100
	}

	trade := models.Trade{
		ID:          uuid.NewString(),
		PositionID:  pos.ID,
		Asset:       pos.Asset,
		Timeframe:   pos.Timeframe,
		Direction:   pos.Direction,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   price,
		Quantity:    pos.Quantity,
		PnLUSD:      pnlUSD,
		PnLPercent:  pnlPct,
		ExitReason:  reason,
		Strategy:    pos.Strategy,
		PatternID:   pos.PatternID,
		Regime:      pos.Regime,
		Session:     pos.Session,
		OpenedAt:    pos.OpenedAt,
		ClosedAt:    now,
		EntrySignal: pos.EntrySignal,
	}

	e.mu.Lock()
	pos.Status = models.PositionClosed
	delete(e.state.Positions, pos.Asset)
	e.state.Balance += pos.ValueUSD + pnlUSD
	e.state.Trades = append(e.state.Trades, trade)
	if e.state.Balance > e.state.PeakBalance {
		e.state.PeakBalance = e.state.Balance
	}
	balance := e.state.Balance
	if pos.PatternID != "" {
		p, found := e.state.Patterns[pos.PatternID]
		if !found {
			p = &models.Pattern{ID: pos.PatternID, Weight: 1.0, CreatedAt: now}
			e.state.Patterns[pos.PatternID] = p
		}
		p.Record(trade.Won(), pnlPct, now)
	}
	e.mu.Unlock()

	e.risk.RecordTradeClosed(pnlUSD, balance, now)
	if pos.WindowID != "" {
		e.detector.RecordOutcome(pos.Asset, pos.Timeframe, trade.Won())
	}
	if pos.Strategy != "" {
		e.ensemble.Tracker().RecordTrade(pos.Strategy, pnlPct)
		e.mu.Lock()
		e.state.StrategyWeights = e.ensemble.Tracker().Weights()
		e.mu.Unlock()
	}

	if e.metrics != nil {
		outcome := "loss"
		if trade.Won() {
			outcome = "win"
		}
		e.metrics.RecordTradeClosed(outcome)
		e.metrics.SetOpenPositions(e.openPositionCount())
		e.metrics.SetBalance(balance)
	}

	e.logger.Info("trade closed",
		logger.String("asset", pos.Asset),
		logger.String("reason", reason),
		logger.Any("pnl_usd", pnlUSD))
	e.bus.Publish(events.TypeTradeClosed, trade)
	e.pushTrade(&trade)
}

// closeAllPositions synchronously closes everything. Each failure is logged
// as a fatal alert; shutdown proceeds regardless.
func (e *Engine) closeAllPositions(ctx context.Context, reason string) {
	e.mu.RLock()
	positions := make([]*models.Position, 0, len(e.state.Positions))
	for _, p := range e.state.Positions {
		positions = append(positions, p)
	}
	e.mu.RUnlock()

	now := time.Now().UTC()
	for _, pos := range positions {
		price, ok := e.buffer.LastPrice(pos.Asset)
		if !ok || price <= 0 {
			price = pos.EntryPrice
			e.alert("FATAL", "shutdown", fmt.Sprintf("no price for %s at shutdown, closing at entry", pos.Asset))
		}
		e.closePosition(ctx, pos, price, reason, now)
	}
}

func (e *Engine) openPositionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.state.Positions)
}

func (e *Engine) balance() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Balance
}

func (e *Engine) pushTrade(t *models.Trade) {
	if e.sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.sink.InsertTrade(ctx, t); err != nil {
			e.logger.Warn("trade insert failed", logger.Error(err))
		}
	}()
}

func (e *Engine) pushRollup(r *models.DailyRollup) {
	if e.sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.sink.InsertDailyRollup(ctx, r); err != nil {
			e.logger.Warn("daily rollup insert failed", logger.Error(err))
		}
	}()
}
