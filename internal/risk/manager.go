package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"scalpd/internal/domain/models"
	"scalpd/internal/ta"
)

// Config bounds what the risk manager will allow.
type Config struct {
	MaxPositionPercent        float64 // base position size as % of balance
	MaxOpenPositions          int
	DailyLossLimitPercent     float64
	MaxDrawdownPercent        float64
	MaxTradesPerHour          int
	MinConfidence             float64 // 0-100
	StopLossPercent           float64 // fixed-percent fallback
	ATRStopMultiplier         float64 // default regime multiplier
	TrailingActivationPercent float64
	TrailingDistancePercent   float64
}

// Position sizing multipliers.
const (
	sizeCapFactor      = 2.0
	drawdownPenaltyAt  = 5.0
	lowVolatilityMax   = 20.0
	highVolatilityMin  = 50.0
	lowVolMultiplier   = 1.2
	highVolMultiplier  = 0.6
	atrMultVolatile    = 2.0
	atrMultRanging     = 1.0
)

// Take-profit ladder: three levels, partial reductions summing to 1.0.
var takeProfitLadder = []struct {
	pricePercent float64
	reduction    float64
}{
	{1.0, 0.4},
	{2.0, 0.3},
	{3.5, 0.3},
}

// Manager owns admission control, sizing, and exit levels. Its daily
// counters reset at UTC midnight, checked on every call rather than by
// timer.
type Manager struct {
	cfg Config

	mu             sync.Mutex
	daily          models.DailyStats
	tradesThisHour int
	lastTradeAt    time.Time
}

func NewManager(cfg Config, startBalance float64, now time.Time) *Manager {
	return &Manager{
		cfg: cfg,
		daily: models.DailyStats{
			Date:         now.UTC().Format("2006-01-02"),
			StartBalance: startBalance,
		},
	}
}

// checkDailyReset rolls the counters when the UTC day changed. Returns the
// rollup of the finished day when a reset happened. Caller holds the lock.
func (m *Manager) checkDailyReset(balance float64, now time.Time) *models.DailyRollup {
	today := now.UTC().Format("2006-01-02")
	if m.daily.Date == today {
		return nil
	}
	rollup := &models.DailyRollup{
		Date:         m.daily.Date,
		Trades:       m.daily.Trades,
		Wins:         m.daily.Wins,
		Losses:       m.daily.Losses,
		PnLUSD:       m.daily.PnLUSD,
		StartBalance: m.daily.StartBalance,
		EndBalance:   balance,
		MaxDrawdown:  m.daily.MaxDrawdown,
		CreatedAt:    now,
	}
	m.daily = models.DailyStats{Date: today, StartBalance: balance}
	return rollup
}

// RolloverIfNeeded performs the UTC-midnight reset check and returns the
// finished day's rollup, if any.
func (m *Manager) RolloverIfNeeded(balance float64, now time.Time) *models.DailyRollup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkDailyReset(balance, now)
}

// BaseSize is the unscaled position size for a balance; sizing caps at twice
// this value.
func (m *Manager) BaseSize(balance float64) float64 {
	return m.cfg.MaxPositionPercent / 100 * balance
}

// PositionSize computes the USD size for a new trade. volatility is a 0-100
// score (ATR-derived); drawdown is percent off peak balance.
func (m *Manager) PositionSize(balance, confidence, volatility float64, session models.Session, drawdown float64) float64 {
	base := m.cfg.MaxPositionPercent / 100 * balance
	size := base *
		confidenceMultiplier(confidence) *
		volatilityMultiplier(volatility) *
		ta.SessionMultiplier(session)
	if drawdown > drawdownPenaltyAt {
		size *= 0.5
	}
	return math.Min(size, sizeCapFactor*base)
}

// confidenceMultiplier is piecewise linear through (65, 0.5), (80, 1.0),
// (95, 1.5), flat outside.
func confidenceMultiplier(confidence float64) float64 {
	switch {
	case confidence <= 65:
		return 0.5
	case confidence <= 80:
		return 0.5 + (confidence-65)/15*0.5
	case confidence <= 95:
		return 1.0 + (confidence-80)/15*0.5
	default:
		return 1.5
	}
}

// volatilityMultiplier favors calm markets.
func volatilityMultiplier(volatility float64) float64 {
	switch {
	case volatility < lowVolatilityMax:
		return lowVolMultiplier
	case volatility > highVolatilityMin:
		return highVolMultiplier
	default:
		return 1.0
	}
}

// AdmissionInput is the full context canOpenTrade evaluates.
type AdmissionInput struct {
	Confidence    float64
	Balance       float64
	OpenPositions int
	Drawdown      float64 // percent
	Now           time.Time
}

// CanOpenTrade gates a new trade. Every violated constraint is reported;
// checks never short-circuit so operators see the complete picture.
func (m *Manager) CanOpenTrade(in AdmissionInput) (bool, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkDailyReset(in.Balance, in.Now)

	var reasons []string

	if in.Confidence < m.cfg.MinConfidence {
		reasons = append(reasons, fmt.Sprintf("confidence %.1f below minimum %.1f", in.Confidence, m.cfg.MinConfidence))
	}

	lossLimit := m.cfg.DailyLossLimitPercent / 100 * m.daily.StartBalance
	if lossLimit > 0 && m.daily.PnLUSD <= -lossLimit {
		reasons = append(reasons, fmt.Sprintf("daily loss limit reached: %.2f USD", m.daily.PnLUSD))
	}

	if m.cfg.MaxDrawdownPercent > 0 && in.Drawdown >= m.cfg.MaxDrawdownPercent {
		reasons = append(reasons, fmt.Sprintf("drawdown %.2f%% at limit %.2f%%", in.Drawdown, m.cfg.MaxDrawdownPercent))
	}

	if in.OpenPositions >= m.cfg.MaxOpenPositions {
		reasons = append(reasons, fmt.Sprintf("open positions at cap %d", m.cfg.MaxOpenPositions))
	}

	if in.Now.Sub(m.lastTradeAt) > time.Hour {
		m.tradesThisHour = 0
	}
	if m.tradesThisHour >= m.cfg.MaxTradesPerHour {
		reasons = append(reasons, fmt.Sprintf("hourly trade cap %d reached", m.cfg.MaxTradesPerHour))
	}

	return len(reasons) == 0, reasons
}

// RecordTradeOpened bumps the hourly rate counter.
func (m *Manager) RecordTradeOpened(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.lastTradeAt) > time.Hour {
		m.tradesThisHour = 0
	}
	m.tradesThisHour++
	m.lastTradeAt = now
}

// RecordTradeClosed folds a closed trade into the daily counters.
func (m *Manager) RecordTradeClosed(pnlUSD float64, balance float64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkDailyReset(balance, now)
	m.daily.PnLUSD += pnlUSD
	m.daily.Trades++
	if pnlUSD > 0 {
		m.daily.Wins++
	} else {
		m.daily.Losses++
	}
}

// RecordDrawdown tracks the worst drawdown seen today.
func (m *Manager) RecordDrawdown(drawdown float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if drawdown > m.daily.MaxDrawdown {
		m.daily.MaxDrawdown = drawdown
	}
}

// Daily returns a copy of today's counters.
func (m *Manager) Daily() models.DailyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.daily
}

// Restore reinstates persisted counters after a restart.
func (m *Manager) Restore(daily models.DailyStats, tradesThisHour int, lastTradeAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if daily.Date != "" {
		m.daily = daily
	}
	m.tradesThisHour = tradesThisHour
	m.lastTradeAt = lastTradeAt
}

// HourlyState exposes the rate counters for persistence.
func (m *Manager) HourlyState() (int, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tradesThisHour, m.lastTradeAt
}
