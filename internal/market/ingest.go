package market

import (
	"context"

	"scalpd/internal/domain/models"
)

// Ingestor adapts the Buffer to the stream pipeline's sink interface.
type Ingestor struct {
	buffer *Buffer
}

func NewIngestor(buffer *Buffer) *Ingestor {
	return &Ingestor{buffer: buffer}
}

// Ingest appends the candle and, when the bar is closed, records its close
// into the momentum price window.
func (i *Ingestor) Ingest(ctx context.Context, c *models.Candle) error {
	i.buffer.AppendCandle(*c)
	if c.Closed {
		i.buffer.RecordPrice(c.Asset, c.Close, c.Timestamp)
	}
	return nil
}
