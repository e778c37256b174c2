package engine

import (
	"context"
	"time"

	"scalpd/internal/domain/models"
	"scalpd/pkg/logger"
)

// saveState snapshots the durable state into the store.
func (e *Engine) saveState(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	snap := e.SerializeState()
	return e.store.Save(ctx, snap)
}

// SerializeState builds a deep-enough copy of the durable state: open
// positions, closed trades, counters, and the adaptive weights.
func (e *Engine) SerializeState() *models.BotState {
	tradesThisHour, lastTradeAt := e.risk.HourlyState()

	e.mu.RLock()
	defer e.mu.RUnlock()

	positions := make(map[string]*models.Position, len(e.state.Positions))
	for k, v := range e.state.Positions {
		cp := *v
		positions[k] = &cp
	}
	trades := make([]models.Trade, len(e.state.Trades))
	copy(trades, e.state.Trades)
	patterns := make(map[string]*models.Pattern, len(e.state.Patterns))
	for k, v := range e.state.Patterns {
		cp := *v
		patterns[k] = &cp
	}

	return &models.BotState{
		Status:          e.state.Status,
		Balance:         e.state.Balance,
		PeakBalance:     e.state.PeakBalance,
		Positions:       positions,
		Trades:          trades,
		Daily:           e.risk.Daily(),
		StrategyWeights: e.ensemble.Tracker().Weights(),
		Patterns:        patterns,
		TradesThisHour:  tradesThisHour,
		LastTradeAt:     lastTradeAt,
		SavedAt:         time.Now().UTC(),
	}
}

// restoreState loads persisted state, if any, and reinstates positions,
// history, counters, and weights.
func (e *Engine) restoreState(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	saved, err := e.store.Load(ctx)
	if err != nil {
		return err
	}
	if saved == nil {
		return nil
	}
	e.RestoreState(saved)
	e.logger.Info("state restored",
		logger.Int("positions", len(saved.Positions)),
		logger.Int("trades", len(saved.Trades)),
		logger.Any("balance", saved.Balance))
	return nil
}

// RestoreState reinstates a serialized snapshot. The lifecycle status is not
// restored; a restarted engine always begins STOPPED.
func (e *Engine) RestoreState(saved *models.BotState) {
	e.mu.Lock()
	if saved.Balance > 0 {
		e.state.Balance = saved.Balance
	}
	if saved.PeakBalance > e.state.PeakBalance {
		e.state.PeakBalance = saved.PeakBalance
	}
	if saved.Positions != nil {
		e.state.Positions = saved.Positions
	}
	if saved.Trades != nil {
		e.state.Trades = saved.Trades
	}
	if saved.Patterns != nil {
		e.state.Patterns = saved.Patterns
	}
	e.mu.Unlock()

	if saved.StrategyWeights != nil {
		e.ensemble.Tracker().Restore(saved.StrategyWeights)
	}
	e.risk.Restore(saved.Daily, saved.TradesThisHour, saved.LastTradeAt)
}
