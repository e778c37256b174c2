package strategy

import (
	"math"
	"sync"
)

const (
	weightMin   = 0.5
	weightMax   = 1.5
	tradeWindow = 50
)

// Tracker owns the adaptive per-strategy weights. Weights move only on
// closed trades, recomputed from each strategy's own trailing trade window
// rather than from single outcomes.
type Tracker struct {
	mu      sync.Mutex
	results map[string][]float64 // pnl percents, trailing window
	weights map[string]float64
}

// NewTracker initializes every named strategy at neutral weight.
func NewTracker(names ...string) *Tracker {
	t := &Tracker{
		results: make(map[string][]float64, len(names)),
		weights: make(map[string]float64, len(names)),
	}
	for _, n := range names {
		t.weights[n] = 1.0
	}
	return t
}

// RecordTrade attributes a closed trade's pnl percent to a strategy and
// recomputes that strategy's weight from its window.
func (t *Tracker) RecordTrade(name string, pnlPct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	window := append(t.results[name], pnlPct)
	if len(window) > tradeWindow {
		window = window[len(window)-tradeWindow:]
	}
	t.results[name] = window
	t.weights[name] = computeWeight(window)
}

// Weight returns the current multiplier for a strategy, 1.0 if unknown.
func (t *Tracker) Weight(name string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.weights[name]; ok {
		return w
	}
	return 1.0
}

// Weights returns a copy of all current weights for persistence.
func (t *Tracker) Weights() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]float64, len(t.weights))
	for k, v := range t.weights {
		out[k] = v
	}
	return out
}

// Restore replaces the weights, clamping each into range. Trade windows are
// rebuilt from live trading after restart.
func (t *Tracker) Restore(weights map[string]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range weights {
		t.weights[k] = clampWeight(v)
	}
}

// computeWeight blends win rate, profit factor, and a Sharpe-like ratio over
// the window into a multiplier in [weightMin, weightMax].
func computeWeight(window []float64) float64 {
	if len(window) == 0 {
		return 1.0
	}

	var wins int
	var grossWin, grossLoss, sum float64
	for _, pnl := range window {
		sum += pnl
		if pnl > 0 {
			wins++
			grossWin += pnl
		} else {
			grossLoss -= pnl
		}
	}
	winRate := float64(wins) / float64(len(window))

	// Win-rate anchor: 0.4 maps to the floor, 0.6 to the ceiling.
	w := 0.5 + (winRate-0.4)*5
	w = clampWeight(w)

	profitFactor := 2.0
	if grossLoss > 0 {
		profitFactor = grossWin / grossLoss
	}
	if profitFactor < 1 {
		w -= 0.2 * (1 - profitFactor)
	} else {
		w += 0.1 * math.Min(profitFactor-1, 1)
	}

	if len(window) >= 2 {
		mean := sum / float64(len(window))
		var variance float64
		for _, pnl := range window {
			d := pnl - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(len(window)))
		if std > 0 {
			sharpe := mean / std
			w += math.Max(-0.1, math.Min(0.1, sharpe*0.1))
		}
	}

	return clampWeight(w)
}

func clampWeight(w float64) float64 {
	if w < weightMin {
		return weightMin
	}
	if w > weightMax {
		return weightMax
	}
	return w
}
