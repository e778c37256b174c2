package engine

import (
	"context"
	"time"

	"scalpd/internal/domain/models"
	"scalpd/internal/events"
)

// DashboardData is the read-only snapshot the control surface and event
// consumers see.
type DashboardData struct {
	Status        models.EngineStatus       `json:"status"`
	Balance       float64                   `json:"balance"`
	PeakBalance   float64                   `json:"peak_balance"`
	Drawdown      float64                   `json:"drawdown"`
	Daily         models.DailyStats         `json:"daily"`
	OpenPositions []*models.Position        `json:"open_positions"`
	RecentTrades  []models.Trade            `json:"recent_trades"`
	Weights       map[string]float64        `json:"strategy_weights"`
	Accuracy      map[string]float64        `json:"arbitrage_accuracy"`
	Alerts        []models.Alert            `json:"alerts"`
	Tickers       map[string]*models.Ticker `json:"tickers"`
	GeneratedAt   time.Time                 `json:"generated_at"`
}

const dashboardRecentTrades = 20

// Dashboard assembles the current snapshot without mutating anything.
func (e *Engine) Dashboard() DashboardData {
	e.mu.RLock()
	positions := make([]*models.Position, 0, len(e.state.Positions))
	for _, p := range e.state.Positions {
		cp := *p
		positions = append(positions, &cp)
	}
	n := len(e.state.Trades)
	start := n - dashboardRecentTrades
	if start < 0 {
		start = 0
	}
	recent := make([]models.Trade, n-start)
	copy(recent, e.state.Trades[start:])
	tickers := make(map[string]*models.Ticker, len(e.tickers))
	for asset, tk := range e.tickers {
		cp := *tk
		tickers[asset] = &cp
	}
	data := DashboardData{
		Status:      e.state.Status,
		Balance:     e.state.Balance,
		PeakBalance: e.state.PeakBalance,
		Drawdown:    e.state.Drawdown(),
		Daily:       e.risk.Daily(),
		Weights:     e.state.StrategyWeights,
		Tickers:     tickers,
		GeneratedAt: time.Now().UTC(),
	}
	e.mu.RUnlock()

	data.OpenPositions = positions
	data.RecentTrades = recent
	data.Accuracy = e.detector.Accuracy().All()
	data.Alerts = e.alerts.list(10)
	return data
}

// Trades returns up to limit most-recent closed trades, newest first,
// optionally filtered by asset.
func (e *Engine) Trades(limit int, asset string) []models.Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.Trade, 0, limit)
	for i := len(e.state.Trades) - 1; i >= 0 && len(out) < limit; i-- {
		t := e.state.Trades[i]
		if asset != "" && t.Asset != asset {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Positions returns copies of the open positions.
func (e *Engine) Positions() []*models.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.Position, 0, len(e.state.Positions))
	for _, p := range e.state.Positions {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// metricsLoop is the fast read-only reporting loop: it refreshes gauges and
// emits dashboard snapshots. It never mutates trading state.
func (e *Engine) metricsLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.RLock()
			balance := e.state.Balance
			peak := e.state.PeakBalance
			drawdown := e.state.Drawdown()
			open := len(e.state.Positions)
			e.mu.RUnlock()

			e.risk.RecordDrawdown(drawdown)
			if e.metrics != nil {
				e.metrics.SetBalance(balance)
				e.metrics.SetPeakBalance(peak)
				e.metrics.SetDrawdown(drawdown)
				e.metrics.SetOpenPositions(open)
			}
			e.bus.Publish(events.TypeDashboardUpdate, e.Dashboard())
		}
	}
}
