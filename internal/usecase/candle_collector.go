package usecase

import (
	"context"

	drepo "scalpd/internal/domain/repository"
	mid "scalpd/internal/middleware"
)

// CandleCollector consumes the live kline stream and feeds the candle buffer
// through the validation pipeline. It reconnects on stream errors and
// reacquires the read channels, which die with the connection.
type CandleCollector struct {
	stream  drepo.MarketStream
	pipe    *mid.StreamPipeline
	metrics drepo.Metrics
}

// NewCandleCollector creates a new CandleCollector instance.
func NewCandleCollector(stream drepo.MarketStream, pipe *mid.StreamPipeline, metrics drepo.Metrics) *CandleCollector {
	return &CandleCollector{stream: stream, pipe: pipe, metrics: metrics}
}

// IsConnected returns true if the market stream is connected.
func (c *CandleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *CandleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)

	go c.consume(ctx)
	return nil
}

func (c *CandleCollector) consume(ctx context.Context) {
	caCh, errCh := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				if c.metrics != nil {
					c.metrics.RecordError("stream")
				}
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					continue
				}
				caCh, errCh = c.stream.Read(ctx)
			}
		case ca := <-caCh:
			if ca == nil {
				continue
			}
			_ = c.pipe.Process(ctx, ca)
			if c.metrics != nil && ca.Closed {
				c.metrics.SetLastPrice(ca.Asset, ca.Close)
			}
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *CandleCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}
