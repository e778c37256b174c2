package engine

import (
	"sync"

	"scalpd/internal/domain/models"
)

const signalCapacity = 200

// signalRing retains the most recent ensemble signals for the control API.
type signalRing struct {
	mu      sync.Mutex
	signals []models.Signal
}

func newSignalRing() *signalRing {
	return &signalRing{signals: make([]models.Signal, 0, signalCapacity)}
}

func (r *signalRing) add(s models.Signal) {
	r.mu.Lock()
	r.signals = append(r.signals, s)
	if len(r.signals) > signalCapacity {
		r.signals = append(r.signals[:0], r.signals[len(r.signals)-signalCapacity:]...)
	}
	r.mu.Unlock()
}

// list returns up to limit most-recent signals, newest first, optionally
// filtered by asset.
func (r *signalRing) list(limit int, asset string) []models.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = len(r.signals)
	}
	out := make([]models.Signal, 0, limit)
	for i := len(r.signals) - 1; i >= 0 && len(out) < limit; i-- {
		s := r.signals[i]
		if asset != "" && s.Asset != asset {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Signals returns up to limit most-recent ensemble signals, newest first.
func (e *Engine) Signals(limit int, asset string) []models.Signal {
	return e.signals.list(limit, asset)
}
