package market

import (
	"strings"
	"sync"
	"time"

	"scalpd/internal/domain/models"
	"scalpd/internal/events"
)

const (
	// maxCandles bounds each per-asset/per-timeframe series.
	maxCandles = 500
	// maxPriceHistory bounds the short tick-price window used for momentum.
	maxPriceHistory = 300
)

type pricePoint struct {
	price float64
	at    time.Time
}

type series struct {
	candles []models.Candle
}

// Buffer holds rolling candle series keyed by asset and timeframe plus a
// short per-asset price history for momentum. All methods are safe for
// concurrent use.
type Buffer struct {
	mu     sync.RWMutex
	series map[string]*series       // key: asset|timeframe
	prices map[string][]pricePoint  // key: asset
	bus    *events.Bus
}

// NewBuffer creates an empty buffer. bus may be nil; when set, every append
// publishes a candle event.
func NewBuffer(bus *events.Bus) *Buffer {
	return &Buffer{
		series: make(map[string]*series),
		prices: make(map[string][]pricePoint),
		bus:    bus,
	}
}

func key(asset, timeframe string) string { return asset + "|" + timeframe }

// AppendCandle inserts a candle into the series for its asset and timeframe.
// The series stays strictly increasing by timestamp: a candle matching the
// latest timestamp replaces it (the bar is still forming), one older than the
// latest is already buffered and is ignored, and only strictly newer candles
// are appended, dropping the oldest once the series exceeds capacity. Refetch
// overlap is therefore idempotent.
func (b *Buffer) AppendCandle(c models.Candle) {
	b.mu.Lock()
	k := key(c.Asset, c.Timeframe)
	s, ok := b.series[k]
	if !ok {
		s = &series{candles: make([]models.Candle, 0, maxCandles)}
		b.series[k] = s
	}

	n := len(s.candles)
	switch {
	case n > 0 && c.Timestamp.Equal(s.candles[n-1].Timestamp):
		s.candles[n-1] = c
	case n > 0 && c.Timestamp.Before(s.candles[n-1].Timestamp):
		b.mu.Unlock()
		return
	default:
		s.candles = append(s.candles, c)
		if len(s.candles) > maxCandles {
			s.candles = append(s.candles[:0], s.candles[len(s.candles)-maxCandles:]...)
		}
	}
	b.mu.Unlock()

	if b.bus != nil {
		b.bus.Publish(events.TypeCandle, c)
	}
}

// Candles returns up to count most-recent candles in chronological order.
// Fewer than count is an ordinary outcome the caller must handle, never an
// error.
func (b *Buffer) Candles(asset, timeframe string, count int) []models.Candle {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.series[key(asset, timeframe)]
	if !ok || count <= 0 {
		return nil
	}
	n := len(s.candles)
	if count > n {
		count = n
	}
	out := make([]models.Candle, count)
	copy(out, s.candles[n-count:])
	return out
}

// Len returns the number of buffered candles for the series.
func (b *Buffer) Len(asset, timeframe string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if s, ok := b.series[key(asset, timeframe)]; ok {
		return len(s.candles)
	}
	return 0
}

// LastPrice returns the most recent recorded tick price, or the latest candle
// close when no ticks were recorded. The bool reports whether any price is
// known.
func (b *Buffer) LastPrice(asset string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if pts := b.prices[asset]; len(pts) > 0 {
		return pts[len(pts)-1].price, true
	}
	for k, s := range b.series {
		if len(s.candles) > 0 && strings.HasPrefix(k, asset+"|") {
			return s.candles[len(s.candles)-1].Close, true
		}
	}
	return 0, false
}

// RecordPrice appends a tick price to the asset's momentum window.
func (b *Buffer) RecordPrice(asset string, price float64, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pts := append(b.prices[asset], pricePoint{price: price, at: at})
	if len(pts) > maxPriceHistory {
		pts = append(pts[:0], pts[len(pts)-maxPriceHistory:]...)
	}
	b.prices[asset] = pts
}

// Momentum returns the percentage price change across the trailing window.
// It returns 0, not NaN, when fewer than two samples fall inside the window.
func (b *Buffer) Momentum(asset string, window time.Duration, now time.Time) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	pts := b.prices[asset]
	cutoff := now.Add(-window)

	var oldest, latest *pricePoint
	for i := range pts {
		if pts[i].at.Before(cutoff) {
			continue
		}
		if oldest == nil {
			oldest = &pts[i]
		}
		latest = &pts[i]
	}
	if oldest == nil || latest == nil || oldest == latest || oldest.price == 0 {
		return 0
	}
	return (latest.price - oldest.price) / oldest.price * 100
}
