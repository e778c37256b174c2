package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scalpd/internal/domain/models"
)

type recordingSink struct {
	mu     sync.Mutex
	got    []*models.Candle
	failed int
	fail   bool
}

func (s *recordingSink) Ingest(ctx context.Context, c *models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		s.failed++
		return errors.New("downstream unavailable")
	}
	s.got = append(s.got, c)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func candleAt(ts time.Time, closed bool) *models.Candle {
	return &models.Candle{
		Timestamp: ts,
		Open:      100, High: 101, Low: 99, Close: 100.5,
		Volume: 10, Asset: "BTC", Timeframe: "15m", Closed: closed,
	}
}

func TestPipelineRejectsInvalidCandles(t *testing.T) {
	sink := &recordingSink{}
	p := NewStreamPipeline(sink, nil)

	bad := []*models.Candle{
		nil,
		{Timestamp: time.Now(), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{Asset: "BTC", Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{Asset: "BTC", Timestamp: time.Now(), Open: 0, High: 101, Low: 99, Close: 100, Volume: 1},
		{Asset: "BTC", Timestamp: time.Now(), Open: 100, High: 99, Low: 101, Close: 100, Volume: 1},
		{Asset: "BTC", Timestamp: time.Now(), Open: 100, High: 101, Low: 99, Close: 100, Volume: -1},
	}
	for i, c := range bad {
		if err := p.Process(context.Background(), c); err == nil {
			t.Fatalf("candle %d: expected validation error", i)
		}
	}
	if sink.count() != 0 {
		t.Fatalf("expected nothing forwarded, got %d", sink.count())
	}
}

func TestPipelineThrottlesFormingBars(t *testing.T) {
	sink := &recordingSink{}
	p := NewStreamPipeline(sink, nil, WithMaxRPS(2))

	ts := time.Now()
	for i := 0; i < 10; i++ {
		if err := p.Process(context.Background(), candleAt(ts, false)); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if got := sink.count(); got != 2 {
		t.Fatalf("expected 2 forming bars through throttle, got %d", got)
	}

	// Closed bars bypass the throttle entirely.
	if err := p.Process(context.Background(), candleAt(ts, true)); err != nil {
		t.Fatalf("process closed: %v", err)
	}
	if got := sink.count(); got != 3 {
		t.Fatalf("expected closed bar to pass, got %d forwarded", got)
	}
}

func TestPipelineBuffersOnDownstreamFailure(t *testing.T) {
	sink := &recordingSink{fail: true}
	p := NewStreamPipeline(sink, nil, WithBufferSize(4))

	c := candleAt(time.Now(), true)
	if err := p.Process(context.Background(), c); err == nil {
		t.Fatal("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("expected candle buffered, depth %d", len(p.bufCh))
	}

	// Recover downstream and let the flusher drain the buffer.
	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("buffered candle never flushed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPipelineFlushesAfterRestart(t *testing.T) {
	sink := &recordingSink{}
	p := NewStreamPipeline(sink, nil, WithBufferSize(4))

	ctx := context.Background()
	p.Start(ctx)
	p.Stop()

	// A candle buffered after the first run must still drain on restart.
	p.bufCh <- candleAt(time.Now(), true)
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("restarted pipeline never flushed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
