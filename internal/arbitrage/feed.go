package arbitrage

import (
	"sync"
	"time"
)

const feedCapacity = 120

type tick struct {
	price float64
	at    time.Time
}

// PriceFeed is a bounded ring of recent exchange prices for one asset, used
// to measure momentum velocity and directional consistency.
type PriceFeed struct {
	mu    sync.RWMutex
	ticks []tick
}

func NewPriceFeed() *PriceFeed {
	return &PriceFeed{ticks: make([]tick, 0, feedCapacity)}
}

// Add records a price sample, evicting the oldest at capacity.
func (f *PriceFeed) Add(price float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, tick{price: price, at: at})
	if len(f.ticks) > feedCapacity {
		f.ticks = append(f.ticks[:0], f.ticks[len(f.ticks)-feedCapacity:]...)
	}
}

// Last returns the most recent price; false when the feed is empty.
func (f *PriceFeed) Last() (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.ticks) == 0 {
		return 0, false
	}
	return f.ticks[len(f.ticks)-1].price, true
}

// Velocity returns the percent-per-minute price change over the window.
func (f *PriceFeed) Velocity(window time.Duration, now time.Time) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cutoff := now.Add(-window)
	var first, last *tick
	for i := range f.ticks {
		if f.ticks[i].at.Before(cutoff) {
			continue
		}
		if first == nil {
			first = &f.ticks[i]
		}
		last = &f.ticks[i]
	}
	if first == nil || last == nil || first == last || first.price == 0 {
		return 0
	}
	minutes := last.at.Sub(first.at).Minutes()
	if minutes <= 0 {
		return 0
	}
	return (last.price - first.price) / first.price * 100 / minutes
}

// Consistency returns the fraction of consecutive moves inside the window
// sharing the dominant direction, in [0, 1]. Zero without enough samples.
func (f *PriceFeed) Consistency(window time.Duration, now time.Time) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cutoff := now.Add(-window)
	var ups, downs int
	var prev *tick
	for i := range f.ticks {
		if f.ticks[i].at.Before(cutoff) {
			continue
		}
		if prev != nil {
			switch {
			case f.ticks[i].price > prev.price:
				ups++
			case f.ticks[i].price < prev.price:
				downs++
			}
		}
		prev = &f.ticks[i]
	}
	total := ups + downs
	if total == 0 {
		return 0
	}
	if ups > downs {
		return float64(ups) / float64(total)
	}
	return float64(downs) / float64(total)
}
