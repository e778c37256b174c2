package engine

import (
	"sync"
	"time"

	"scalpd/internal/domain/models"
)

const alertCapacity = 100

// alertRing retains the most recent alerts for the dashboard. Alerts are
// observability artifacts only; nothing in the trading path reads them.
type alertRing struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func newAlertRing() *alertRing {
	return &alertRing{alerts: make([]models.Alert, 0, alertCapacity)}
}

func (r *alertRing) add(level, source, message string, at time.Time) models.Alert {
	a := models.Alert{Level: level, Source: source, Message: message, Timestamp: at}
	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	if len(r.alerts) > alertCapacity {
		r.alerts = append(r.alerts[:0], r.alerts[len(r.alerts)-alertCapacity:]...)
	}
	r.mu.Unlock()
	return a
}

// list returns up to limit most-recent alerts, newest first.
func (r *alertRing) list(limit int) []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.alerts)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.Alert, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.alerts[n-1-i]
	}
	return out
}
