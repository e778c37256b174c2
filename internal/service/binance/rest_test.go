package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	drepo "scalpd/internal/domain/repository"
)

const klinesBody = `[
  [1700000000000,"42000.00","42100.00","41900.00","42050.00","12.5",1700000899999,"525625.0",100,"6.2","260812.5","0"],
  [1700000900000,"42050.00","42200.00","42000.00","42150.00","8.75",1700001799999,"368812.5",80,"4.1","172815.0","0"]
]`

func TestFetchCandlesParsesKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %s, want BTCUSDT", got)
		}
		if got := r.URL.Query().Get("interval"); got != "15m" {
			t.Errorf("interval = %s, want 15m", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	c := NewREST(srv.URL, 2*time.Second, 1, nil)
	candles, err := c.FetchCandles(context.Background(), "BTC", drepo.TF15m, 2)
	if err != nil {
		t.Fatalf("fetch candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	first := candles[0]
	if first.Open != 42000 || first.High != 42100 || first.Low != 41900 || first.Close != 42050 {
		t.Fatalf("unexpected OHLC: %+v", first)
	}
	if first.Volume != 12.5 {
		t.Fatalf("volume = %f, want 12.5", first.Volume)
	}
	if first.Asset != "BTC" || first.Timeframe != "15m" {
		t.Fatalf("asset/timeframe = %s/%s", first.Asset, first.Timeframe)
	}
	if !first.Closed {
		t.Fatal("past candle should be marked closed")
	}
	if !first.Timestamp.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Fatalf("timestamp = %v", first.Timestamp)
	}
}

func TestFetchTickerDegradesToStale(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"42000.5","priceChange":"100.5","priceChangePercent":"0.24","highPrice":"42500","lowPrice":"41500","volume":"1000","quoteVolume":"42000000"}`))
	}))
	defer srv.Close()

	c := NewREST(srv.URL, 2*time.Second, 1, nil)

	tk, err := c.FetchTicker(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("fetch ticker: %v", err)
	}
	if tk.LastPrice != 42000.5 {
		t.Fatalf("last price = %f", tk.LastPrice)
	}
	if tk.Stale {
		t.Fatal("fresh ticker marked stale")
	}

	fail.Store(true)
	stale, err := c.FetchTicker(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("expected stale degrade, got error: %v", err)
	}
	if !stale.Stale {
		t.Fatal("degraded ticker not marked stale")
	}
	if stale.LastPrice != 42000.5 {
		t.Fatalf("stale price = %f, want last good 42000.5", stale.LastPrice)
	}
}

func TestFetchTickerFailsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewREST(srv.URL, 2*time.Second, 1, nil)
	if _, err := c.FetchTicker(context.Background(), "BTC"); err == nil {
		t.Fatal("expected error with no cached ticker")
	}
}

func TestPair(t *testing.T) {
	cases := map[string]string{
		"BTC":     "BTCUSDT",
		"eth":     "ETHUSDT",
		"SOLUSDT": "SOLUSDT",
	}
	for in, want := range cases {
		if got := Pair(in); got != want {
			t.Errorf("Pair(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKlineToCandle(t *testing.T) {
	c := klineToCandle(wsKline{
		OpenTime: 1700000000000,
		Symbol:   "BTCUSDT",
		Interval: "15m",
		Open:     "42000", Close: "42100", High: "42150", Low: "41950",
		Volume: "3.5",
		Closed: true,
	})
	if c.Asset != "BTC" {
		t.Fatalf("asset = %s, want BTC", c.Asset)
	}
	if c.Timeframe != "15m" || !c.Closed {
		t.Fatalf("timeframe/closed = %s/%v", c.Timeframe, c.Closed)
	}
	if c.Open != 42000 || c.Close != 42100 || c.High != 42150 || c.Low != 41950 || c.Volume != 3.5 {
		t.Fatalf("unexpected values: %+v", c)
	}
}
