package market

import (
	"testing"
	"time"

	"scalpd/internal/domain/models"
)

func candleAt(ts time.Time, close float64) models.Candle {
	return models.Candle{
		Timestamp: ts,
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    1,
		Asset:     "BTC",
		Timeframe: "15m",
	}
}

func TestAppendCandleDuplicateTimestampReplaces(t *testing.T) {
	b := NewBuffer(nil)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	b.AppendCandle(candleAt(ts, 100))
	b.AppendCandle(candleAt(ts, 105))

	got := b.Candles("BTC", "15m", 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(got))
	}
	if got[0].Close != 105 {
		t.Fatalf("expected replacement close 105, got %v", got[0].Close)
	}
}

func TestAppendCandleCapacityDropsOldest(t *testing.T) {
	b := NewBuffer(nil)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < maxCandles+25; i++ {
		b.AppendCandle(candleAt(start.Add(time.Duration(i)*15*time.Minute), float64(i)))
	}

	if n := b.Len("BTC", "15m"); n != maxCandles {
		t.Fatalf("expected %d candles, got %d", maxCandles, n)
	}
	got := b.Candles("BTC", "15m", 1)
	if got[0].Close != float64(maxCandles+24) {
		t.Fatalf("expected newest candle retained, got close %v", got[0].Close)
	}
	oldest := b.Candles("BTC", "15m", maxCandles)[0]
	if oldest.Close != 25 {
		t.Fatalf("expected oldest 25 after trim, got %v", oldest.Close)
	}
}

func TestAppendCandleOverlappingBatchesStayStrictlyIncreasing(t *testing.T) {
	b := NewBuffer(nil)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	batch := make([]models.Candle, 100)
	for i := range batch {
		batch[i] = candleAt(start.Add(time.Duration(i)*15*time.Minute), float64(i))
	}

	// The cycle refetch replays mostly-identical batches every tick.
	for round := 0; round < 3; round++ {
		for _, c := range batch {
			b.AppendCandle(c)
		}
	}

	got := b.Candles("BTC", "15m", 250)
	if len(got) != 100 {
		t.Fatalf("expected 100 unique candles after replays, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("series not strictly increasing at index %d: %v then %v",
				i, got[i-1].Timestamp, got[i].Timestamp)
		}
	}
}

func TestAppendCandleIgnoresStaleBar(t *testing.T) {
	b := NewBuffer(nil)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	b.AppendCandle(candleAt(start, 1))
	b.AppendCandle(candleAt(start.Add(15*time.Minute), 2))
	b.AppendCandle(candleAt(start, 99)) // already buffered, must not reorder

	got := b.Candles("BTC", "15m", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	if got[0].Close != 1 || got[1].Close != 2 {
		t.Fatalf("stale bar altered the series: %v %v", got[0].Close, got[1].Close)
	}
}

func TestCandlesReturnsFewerWhenInsufficient(t *testing.T) {
	b := NewBuffer(nil)
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b.AppendCandle(candleAt(ts, 1))
	b.AppendCandle(candleAt(ts.Add(15*time.Minute), 2))

	got := b.Candles("BTC", "15m", 50)
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	if got[0].Close != 1 || got[1].Close != 2 {
		t.Fatalf("candles out of order: %v %v", got[0].Close, got[1].Close)
	}
}

func TestMomentumRequiresTwoSamples(t *testing.T) {
	b := NewBuffer(nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if m := b.Momentum("BTC", 5*time.Minute, now); m != 0 {
		t.Fatalf("expected 0 momentum with no samples, got %v", m)
	}

	b.RecordPrice("BTC", 100, now.Add(-time.Minute))
	if m := b.Momentum("BTC", 5*time.Minute, now); m != 0 {
		t.Fatalf("expected 0 momentum with one sample, got %v", m)
	}

	b.RecordPrice("BTC", 102, now)
	m := b.Momentum("BTC", 5*time.Minute, now)
	if m < 1.99 || m > 2.01 {
		t.Fatalf("expected ~2%% momentum, got %v", m)
	}
}

func TestMomentumIgnoresSamplesOutsideWindow(t *testing.T) {
	b := NewBuffer(nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	b.RecordPrice("BTC", 50, now.Add(-time.Hour)) // outside window
	b.RecordPrice("BTC", 100, now.Add(-2*time.Minute))
	b.RecordPrice("BTC", 110, now)

	m := b.Momentum("BTC", 5*time.Minute, now)
	if m < 9.99 || m > 10.01 {
		t.Fatalf("expected ~10%% momentum within window, got %v", m)
	}
}
