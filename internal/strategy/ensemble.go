package strategy

import (
	"fmt"

	"scalpd/internal/domain/models"
	"scalpd/pkg/logger"
)

const (
	noConsensusConfidence = 20
	disagreementPenalty   = 0.7
)

// regimeWeights scales each strategy's vote by how suited it is to the
// current regime. Missing entries default to 1.0.
var regimeWeights = map[models.Regime]map[string]float64{
	models.RegimeTrendingUp: {
		NameEMACross:      1.3,
		NameBreakout:      1.2,
		NameOrderFlow:     1.1,
		NameRSIReversal:   0.6,
		NameVWAPReversion: 0.5,
	},
	models.RegimeTrendingDown: {
		NameEMACross:      1.3,
		NameBreakout:      1.2,
		NameOrderFlow:     1.1,
		NameRSIReversal:   0.6,
		NameVWAPReversion: 0.5,
	},
	models.RegimeRanging: {
		NameRSIReversal:   1.3,
		NameVWAPReversion: 1.3,
		NameEMACross:      0.7,
		NameBreakout:      0.8,
		NameOrderFlow:     1.0,
	},
	models.RegimeVolatile: {
		NameBreakout:      1.2,
		NameOrderFlow:     1.1,
		NameEMACross:      0.8,
		NameRSIReversal:   0.7,
		NameVWAPReversion: 0.6,
	},
	models.RegimeChoppy: {
		NameEMACross:      0.6,
		NameBreakout:      0.6,
		NameRSIReversal:   0.9,
		NameVWAPReversion: 0.9,
		NameOrderFlow:     0.8,
	},
}

// Ensemble runs all strategies and combines their signals with regime- and
// performance-weighted majority voting.
type Ensemble struct {
	strategies       []Strategy
	tracker          *Tracker
	minConfidence    float64
	requiredMajority int
	logger           *logger.Logger
}

// NewEnsemble wires the default five strategies. requiredMajority is the
// count of strategies that must agree on a non-neutral direction.
func NewEnsemble(tracker *Tracker, minConfidence float64, requiredMajority int, log *logger.Logger) *Ensemble {
	return &Ensemble{
		strategies: []Strategy{
			NewEMACross(),
			NewRSIReversal(),
			NewBreakout(),
			NewVWAPReversion(),
			NewOrderFlow(),
		},
		tracker:          tracker,
		minConfidence:    minConfidence,
		requiredMajority: requiredMajority,
		logger:           log,
	}
}

// Tracker exposes the weight tracker for trade attribution.
func (e *Ensemble) Tracker() *Tracker { return e.tracker }

// Strategies returns the configured strategy set.
func (e *Ensemble) Strategies() []Strategy { return e.strategies }

// Analyze runs every strategy and returns the combined signal. A single
// strategy failure never aborts the cycle; it degrades to a neutral vote.
func (e *Ensemble) Analyze(in Input) models.Signal {
	signals := make([]models.Signal, 0, len(e.strategies))
	for _, s := range e.strategies {
		signals = append(signals, e.evaluateSafe(s, in))
	}
	return e.combine(in, signals)
}

func (e *Ensemble) evaluateSafe(s Strategy, in Input) (out models.Signal) {
	defer func() {
		if r := recover(); r != nil {
			if e.logger != nil {
				e.logger.Error("strategy panicked, substituting neutral",
					logger.String("strategy", s.Name()),
					logger.Any("panic", r))
			}
			out = models.NeutralSignal(in.Asset, s.Name(), "strategy failure", in.Now)
		}
	}()
	return s.Evaluate(in)
}

func (e *Ensemble) combine(in Input, signals []models.Signal) models.Signal {
	var (
		longScore, longWeight   float64
		shortScore, shortWeight float64
		longVotes, shortVotes   int
		reasons                 []string
	)

	regimeTable := regimeWeights[in.Regime.Regime]
	for _, sig := range signals {
		if sig.Direction == models.Neutral || sig.Confidence <= 0 {
			continue
		}
		w := e.tracker.Weight(sig.Strategy)
		if mult, ok := regimeTable[sig.Strategy]; ok {
			w *= mult
		}
		switch sig.Direction {
		case models.Long:
			longVotes++
			longScore += sig.Confidence * w
			longWeight += w
		case models.Short:
			shortVotes++
			shortScore += sig.Confidence * w
			shortWeight += w
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s %.0f", sig.Strategy, sig.Direction, sig.Confidence))
	}

	dir := models.Neutral
	confidence := 0.0
	switch {
	case longScore > shortScore && longWeight > 0:
		dir = models.Long
		confidence = longScore / longWeight
	case shortScore > longScore && shortWeight > 0:
		dir = models.Short
		confidence = shortScore / shortWeight
	}

	if dir == models.Neutral {
		return e.finish(in, models.Neutral, 0, append(reasons, "no directional signals"))
	}

	if longVotes > 0 && shortVotes > 0 {
		confidence *= disagreementPenalty
		reasons = append(reasons, "strategy disagreement penalty applied")
	}

	agreeing := longVotes
	if dir == models.Short {
		agreeing = shortVotes
	}
	if agreeing < e.requiredMajority {
		confidence = noConsensusConfidence
		reasons = append(reasons, fmt.Sprintf("no consensus: %d of %d strategies agree", agreeing, len(signals)))
	}

	confidence = models.ClampConfidence(confidence)
	if confidence < e.minConfidence {
		reasons = append(reasons, fmt.Sprintf("confidence %.1f below minimum %.1f", confidence, e.minConfidence))
		return e.finish(in, models.Neutral, confidence, reasons)
	}
	return e.finish(in, dir, confidence, reasons)
}

func (e *Ensemble) finish(in Input, dir models.Direction, confidence float64, reasons []string) models.Signal {
	sig := signal(in, "ensemble", dir, confidence, reasons)
	return sig
}
