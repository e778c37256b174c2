package ta

import (
	"time"

	"scalpd/internal/domain/models"
)

// ClassifySession maps a UTC hour to its trading session. The London-NY
// overlap wins over both of its constituents.
func ClassifySession(t time.Time) models.Session {
	switch h := t.UTC().Hour(); {
	case h >= 13 && h < 16:
		return models.SessionOverlap
	case h >= 8 && h < 13:
		return models.SessionLondon
	case h >= 16:
		return models.SessionNY
	default:
		return models.SessionAsian
	}
}

// SessionMultiplier scales position size by session liquidity.
func SessionMultiplier(s models.Session) float64 {
	switch s {
	case models.SessionOverlap:
		return 1.5
	case models.SessionLondon, models.SessionNY:
		return 1.2
	default:
		return 0.8
	}
}
