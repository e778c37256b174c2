package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2025, 6, 1, 12, 7, 33, 0, time.UTC)
	to := time.Date(2025, 6, 1, 14, 52, 9, 0, time.UTC)

	cases := map[string][2]time.Time{
		"1m":  {time.Date(2025, 6, 1, 12, 7, 0, 0, time.UTC), time.Date(2025, 6, 1, 14, 52, 0, 0, time.UTC)},
		"5m":  {time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC), time.Date(2025, 6, 1, 14, 50, 0, 0, time.UTC)},
		"15m": {time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 14, 45, 0, 0, time.UTC)},
		"1h":  {time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)},
	}
	for tf, want := range cases {
		gotFrom, gotTo := AlignFromTo(from, to, tf)
		if !gotFrom.Equal(want[0]) || !gotTo.Equal(want[1]) {
			t.Errorf("AlignFromTo(%s) = %v..%v, want %v..%v", tf, gotFrom, gotTo, want[0], want[1])
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 50); got != 50 {
		t.Fatalf("empty: got %d", got)
	}
	if got := ParseIntDefault("abc", 50); got != 50 {
		t.Fatalf("invalid: got %d", got)
	}
	if got := ParseIntDefault("7", 50); got != 7 {
		t.Fatalf("valid: got %d", got)
	}
}
