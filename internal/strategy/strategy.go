package strategy

import (
	"time"

	"scalpd/internal/domain/models"
)

// Strategy names. They key the regime weight table and the adaptive weights,
// so they must stay stable across restarts.
const (
	NameEMACross      = "ema_cross"
	NameRSIReversal   = "rsi_reversal"
	NameBreakout      = "breakout"
	NameVWAPReversion = "vwap_reversion"
	NameOrderFlow     = "order_flow"
)

// Input is the per-cycle read-only view every strategy evaluates. Candles are
// chronological; Snapshot was computed from them this cycle.
type Input struct {
	Asset     string
	Timeframe string
	Candles   []models.Candle
	Snapshot  *models.IndicatorSnapshot
	Regime    models.RegimeAnalysis
	Session   models.Session
	Now       time.Time
}

// Strategy is one independent signal producer. Evaluate must be a pure
// function of its input and must clamp its confidence to [0, 100].
type Strategy interface {
	Name() string
	Evaluate(in Input) models.Signal
}

// signal assembles a strategy output with the shared bookkeeping fields set.
func signal(in Input, name string, dir models.Direction, confidence float64, reasons []string) models.Signal {
	confidence = models.ClampConfidence(confidence)
	return models.Signal{
		Asset:      in.Asset,
		Timeframe:  in.Timeframe,
		Direction:  dir,
		Confidence: confidence,
		Reasons:    reasons,
		Strength:   models.StrengthFor(confidence),
		Strategy:   name,
		Price:      in.Snapshot.Price,
		Regime:     in.Regime.Regime,
		Session:    in.Session,
		Snapshot:   in.Snapshot,
		Timestamp:  in.Now,
	}
}

func neutral(in Input, name, reason string) models.Signal {
	return models.NeutralSignal(in.Asset, name, reason, in.Now)
}
