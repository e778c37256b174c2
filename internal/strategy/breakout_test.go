package strategy

import (
	"strings"
	"testing"
	"time"

	"scalpd/internal/domain/models"
	"scalpd/internal/ta"
)

// rangeSeries builds n flat range bars followed by one breakout bar closing
// at breakoutClose. pivotHigh, when non-zero, marks bar 12 as a swing high.
func rangeSeries(n int, pivotHigh, breakoutClose float64) []models.Candle {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := 0; i < n-1; i++ {
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      100, High: 100.5, Low: 99.5, Close: 100,
			Volume: 100, Asset: "BTC", Timeframe: "15m",
		}
	}
	if pivotHigh > 0 {
		out[12].High = pivotHigh
	}
	out[n-1] = models.Candle{
		Timestamp: start.Add(time.Duration(n-1) * 15 * time.Minute),
		Open:      100, High: breakoutClose + 0.2, Low: 99.8, Close: breakoutClose,
		Volume: 100, Asset: "BTC", Timeframe: "15m",
	}
	return out
}

func breakoutInput(candles []models.Candle) Input {
	return Input{
		Asset:     "BTC",
		Timeframe: "15m",
		Candles:   candles,
		Snapshot:  ta.Snapshot(candles),
		Now:       candles[len(candles)-1].Timestamp,
	}
}

func TestBreakoutSwingResistanceConfirmation(t *testing.T) {
	s := NewBreakout()

	withPivot := s.Evaluate(breakoutInput(rangeSeries(26, 104, 105)))
	if withPivot.Direction != models.Long {
		t.Fatalf("expected LONG breakout, got %s (%v)", withPivot.Direction, withPivot.Reasons)
	}
	confirmed := false
	for _, r := range withPivot.Reasons {
		if strings.Contains(r, "cleared swing resistance") {
			confirmed = true
		}
	}
	if !confirmed {
		t.Fatalf("expected swing resistance confirmation, got %v", withPivot.Reasons)
	}

	noPivot := s.Evaluate(breakoutInput(rangeSeries(26, 0, 105)))
	if noPivot.Direction != models.Long {
		t.Fatalf("expected LONG breakout, got %s", noPivot.Direction)
	}
	for _, r := range noPivot.Reasons {
		if strings.Contains(r, "cleared swing resistance") {
			t.Fatalf("no swing level exists, reasons: %v", noPivot.Reasons)
		}
	}
	if withPivot.Confidence <= noPivot.Confidence {
		t.Fatalf("level break should raise confidence: %v vs %v",
			withPivot.Confidence, noPivot.Confidence)
	}
}
