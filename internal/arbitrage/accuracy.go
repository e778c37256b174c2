package arbitrage

import "sync"

const accuracyWindow = 100

// AccuracyTracker keeps rolling hit-rate statistics per (asset, timeframe)
// so the dashboard can show how often emitted signals resolved correctly.
type AccuracyTracker struct {
	mu       sync.Mutex
	outcomes map[string][]bool
}

func NewAccuracyTracker() *AccuracyTracker {
	return &AccuracyTracker{outcomes: make(map[string][]bool)}
}

func accuracyKey(asset, timeframe string) string { return asset + "|" + timeframe }

// Record appends one resolved-signal outcome.
func (a *AccuracyTracker) Record(asset, timeframe string, correct bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := accuracyKey(asset, timeframe)
	window := append(a.outcomes[k], correct)
	if len(window) > accuracyWindow {
		window = window[len(window)-accuracyWindow:]
	}
	a.outcomes[k] = window
}

// Stats returns the hit rate and sample count for the pair.
func (a *AccuracyTracker) Stats(asset, timeframe string) (hitRate float64, samples int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	window := a.outcomes[accuracyKey(asset, timeframe)]
	if len(window) == 0 {
		return 0, 0
	}
	hits := 0
	for _, ok := range window {
		if ok {
			hits++
		}
	}
	return float64(hits) / float64(len(window)), len(window)
}

// All returns a snapshot of every tracked pair's hit rate.
func (a *AccuracyTracker) All() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]float64, len(a.outcomes))
	for k, window := range a.outcomes {
		if len(window) == 0 {
			continue
		}
		hits := 0
		for _, ok := range window {
			if ok {
				hits++
			}
		}
		out[k] = float64(hits) / float64(len(window))
	}
	return out
}
