package ta

import (
	"testing"
	"time"

	"scalpd/internal/domain/models"
)

func bar(open, high, low, close float64) models.Candle {
	return models.Candle{
		Timestamp: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Open:      open, High: high, Low: low, Close: close,
		Volume: 1, Asset: "BTC", Timeframe: "15m",
	}
}

func hasPattern(patterns []models.CandlePattern, name string) bool {
	for _, p := range patterns {
		if p.Name == name {
			return true
		}
	}
	return false
}

func TestDetectPatternsHammer(t *testing.T) {
	got := DetectPatterns([]models.Candle{bar(100, 100.6, 98, 100.5)})
	if !hasPattern(got, "hammer") {
		t.Fatalf("long lower wick should read as hammer, got %v", got)
	}
}

func TestDetectPatternsShootingStar(t *testing.T) {
	got := DetectPatterns([]models.Candle{bar(100.5, 103, 99.9, 100)})
	if !hasPattern(got, "shooting_star") {
		t.Fatalf("long upper wick should read as shooting star, got %v", got)
	}
}

func TestDetectPatternsDoji(t *testing.T) {
	got := DetectPatterns([]models.Candle{bar(100, 101, 99, 100.05)})
	if !hasPattern(got, "doji") {
		t.Fatalf("tiny body should read as doji, got %v", got)
	}
}

func TestDetectPatternsBullishEngulfing(t *testing.T) {
	prev := bar(101, 101.2, 99.8, 100)
	last := bar(99.9, 101.6, 99.8, 101.5)
	got := DetectPatterns([]models.Candle{prev, last})
	if !hasPattern(got, "bullish_engulfing") {
		t.Fatalf("expected bullish engulfing, got %v", got)
	}
}

func TestDetectPatternsBearishEngulfing(t *testing.T) {
	prev := bar(100, 101.2, 99.9, 101)
	last := bar(101.1, 101.3, 99.4, 99.5)
	got := DetectPatterns([]models.Candle{prev, last})
	if !hasPattern(got, "bearish_engulfing") {
		t.Fatalf("expected bearish engulfing, got %v", got)
	}
}

func TestDetectPatternsNothingOnPlainBar(t *testing.T) {
	got := DetectPatterns([]models.Candle{bar(100, 100.6, 99.9, 100.5)})
	if len(got) != 0 {
		t.Fatalf("ordinary bar should match nothing, got %v", got)
	}
}

func TestFindLevelsPivots(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 15)
	for i := range candles {
		c := bar(100, 100.5, 99.5, 100)
		c.Timestamp = start.Add(time.Duration(i) * 15 * time.Minute)
		candles[i] = c
	}
	candles[5].High = 104 // swing high
	candles[9].Low = 96   // swing low

	levels := FindLevels(candles)
	if len(levels.Resistance) != 1 || levels.Resistance[0] != 104 {
		t.Fatalf("resistance = %v, want [104]", levels.Resistance)
	}
	if len(levels.Support) != 1 || levels.Support[0] != 96 {
		t.Fatalf("support = %v, want [96]", levels.Support)
	}
}

func TestFindLevelsOrdersNearestFirst(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 20)
	for i := range candles {
		c := bar(100, 100.5, 99.5, 100)
		c.Timestamp = start.Add(time.Duration(i) * 15 * time.Minute)
		candles[i] = c
	}
	candles[4].High = 108
	candles[10].High = 103
	candles[7].Low = 92
	candles[13].Low = 97

	levels := FindLevels(candles)
	if len(levels.Resistance) != 2 || levels.Resistance[0] != 103 {
		t.Fatalf("nearest resistance first: %v", levels.Resistance)
	}
	if len(levels.Support) != 2 || levels.Support[0] != 97 {
		t.Fatalf("nearest support first: %v", levels.Support)
	}
}

func TestFindLevelsInsufficientData(t *testing.T) {
	levels := FindLevels([]models.Candle{bar(100, 101, 99, 100)})
	if len(levels.Resistance) != 0 || len(levels.Support) != 0 {
		t.Fatalf("short series must yield no levels, got %+v", levels)
	}
}
