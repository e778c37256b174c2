package strategy

import (
	"strings"
	"testing"
	"time"

	"scalpd/internal/domain/models"
)

func reversalInput(last models.Candle) Input {
	return Input{
		Asset:     "BTC",
		Timeframe: "15m",
		Candles:   []models.Candle{last},
		Snapshot:  &models.IndicatorSnapshot{Price: last.Close, RSI: 25},
		Now:       time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestRSIReversalPatternConfirmation(t *testing.T) {
	s := NewRSIReversal()

	hammer := models.Candle{
		Open: 100, High: 100.6, Low: 98, Close: 100.5,
		Volume: 1, Asset: "BTC", Timeframe: "15m",
	}
	plain := models.Candle{
		Open: 100, High: 100.6, Low: 99.9, Close: 100.5,
		Volume: 1, Asset: "BTC", Timeframe: "15m",
	}

	confirmed := s.Evaluate(reversalInput(hammer))
	baseline := s.Evaluate(reversalInput(plain))

	if confirmed.Direction != models.Long || baseline.Direction != models.Long {
		t.Fatalf("oversold rsi must go LONG: %s / %s", confirmed.Direction, baseline.Direction)
	}
	found := false
	for _, r := range confirmed.Reasons {
		if strings.Contains(r, "hammer confirms reversal") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hammer confirmation, got %v", confirmed.Reasons)
	}
	if confirmed.Confidence <= baseline.Confidence {
		t.Fatalf("pattern confirmation should raise confidence: %v vs %v",
			confirmed.Confidence, baseline.Confidence)
	}
}

func TestRSIReversalBearishPatternDoesNotConfirmLong(t *testing.T) {
	s := NewRSIReversal()

	star := models.Candle{
		Open: 100.5, High: 103, Low: 99.9, Close: 100,
		Volume: 1, Asset: "BTC", Timeframe: "15m",
	}
	got := s.Evaluate(reversalInput(star))
	for _, r := range got.Reasons {
		if strings.Contains(r, "confirms reversal") {
			t.Fatalf("bearish pattern must not confirm a long, got %v", got.Reasons)
		}
	}
}
