package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scalpd/internal/domain/models"
	domrepo "scalpd/internal/domain/repository"
)

// CandleSink is the minimal downstream the pipeline needs.
type CandleSink interface {
	Ingest(ctx context.Context, c *models.Candle) error
}

// StreamPipeline sits between the WebSocket market stream and the candle
// buffer. It validates, throttles per asset, and buffers when the downstream
// is temporarily unavailable.
type StreamPipeline struct {
	sink     CandleSink
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.Candle
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-asset last accepted time
	counts   map[string]int
}

type PipelineOption func(*StreamPipeline)

// WithMaxRPS sets the max candle updates per second per asset.
func WithMaxRPS(n int) PipelineOption {
	return func(p *StreamPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *StreamPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewStreamPipeline creates a new pipeline.
func NewStreamPipeline(sink CandleSink, metrics domrepo.Metrics, opts ...PipelineOption) *StreamPipeline {
	p := &StreamPipeline{
		sink:     sink,
		metrics:  metrics,
		maxRPS:   10,  // default throttle per asset
		bufSize:  500, // default buffer
		bufCh:    make(chan *models.Candle, 500),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
		counts:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.Candle, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered candles. The pipeline can be
// stopped and started again; each run gets its own stop channel.
func (p *StreamPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-stop:
				return
			case c := <-p.bufCh:
				if c == nil {
					continue
				}
				if err := p.sink.Ingest(ctx, c); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.recordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- c:
					default:
						p.recordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *StreamPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Process validates, throttles, and forwards a candle downstream, buffering
// on errors. Forming bars beyond the per-asset rate are dropped; closed bars
// always pass.
func (p *StreamPipeline) Process(ctx context.Context, c *models.Candle) error {
	start := time.Now()
	if err := validateCandle(c); err != nil {
		p.recordError("pipeline_validate")
		return err
	}
	if !c.Closed && !p.allow(c.Asset, start) {
		p.recordError("pipeline_throttle")
		return nil
	}

	if err := p.sink.Ingest(ctx, c); err != nil {
		p.recordError("pipeline_ingest")
		// buffer non-blocking
		select {
		case p.bufCh <- c:
		default:
			p.recordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	}
	return nil
}

func (p *StreamPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

func validateCandle(c *models.Candle) error {
	if c == nil {
		return fmt.Errorf("candle nil")
	}
	if c.Asset == "" {
		return fmt.Errorf("asset empty")
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("non-positive price")
	}
	if c.High < c.Low {
		return fmt.Errorf("high below low")
	}
	if c.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	return nil
}

// allow enforces at most maxRPS accepted updates per asset per second.
func (p *StreamPipeline) allow(asset string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	last := p.lastSeen[asset]
	if last.IsZero() || now.Sub(last) >= time.Second {
		p.lastSeen[asset] = now
		p.counts[asset] = 1
		return true
	}
	if p.counts[asset] < p.maxRPS {
		p.counts[asset]++
		return true
	}
	return false
}
