package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	drepo "scalpd/internal/domain/repository"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		BaseURL:         srv.URL,
		APIKey:          "key",
		APISecret:       "secret",
		Passphrase:      "pass",
		RequestTimeout:  2 * time.Second,
		RetryMax:        1,
		PriceCacheTTL:   time.Minute,
		OrdersPerSecond: 100,
	}, nil)
	return c, srv
}

func TestRequestsAreSigned(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range []string{"X-API-KEY", "X-API-PASSPHRASE", "X-API-TIMESTAMP", "X-API-SIGNATURE"} {
			if r.Header.Get(h) == "" {
				t.Errorf("missing header %s", h)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"balance": 1234.5})
	}))

	bal, err := c.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal != 1234.5 {
		t.Fatalf("balance = %f", bal)
	}
}

func TestFindActiveWindowsMatchesTimeframe(t *testing.T) {
	now := time.Now().Unix()
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": "w1", "asset": "BTC", "timeframe": "1h", "open_price": 42000.0, "open_time": now - 600, "end_time": now + 3000, "up_token_id": "u1", "down_token_id": "d1", "up_price": 0.5, "down_price": 0.5},
			{"id": "w2", "asset": "BTC", "timeframe": "15m", "open_price": 42000.0, "open_time": now - 300, "end_time": now + 600, "up_token_id": "u2", "down_token_id": "d2", "up_price": 0.45, "down_price": 0.55},
		})
	}))

	windows, err := c.FindActiveWindows(context.Background(), "BTC", drepo.TF15m)
	if err != nil {
		t.Fatalf("find windows: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 matching window, got %d", len(windows))
	}
	w := windows[0]
	if w.ID != "w2" || w.TimeframeFallback {
		t.Fatalf("expected exact 15m match, got %+v", w)
	}
}

func TestFindActiveWindowsFallbackIsFlagged(t *testing.T) {
	now := time.Now().Unix()
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": "w1", "asset": "BTC", "timeframe": "1h", "open_price": 42000.0, "open_time": now - 600, "end_time": now + 3000, "up_token_id": "u1", "down_token_id": "d1", "up_price": 0.5, "down_price": 0.5},
		})
	}))

	windows, err := c.FindActiveWindows(context.Background(), "BTC", drepo.TF15m)
	if err != nil {
		t.Fatalf("find windows: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected the fallback window, got %d", len(windows))
	}
	if !windows[0].TimeframeFallback {
		t.Fatal("fallback window not flagged")
	}
	if windows[0].Timeframe != "1h" {
		t.Fatalf("fallback timeframe = %s", windows[0].Timeframe)
	}
}

func TestGetPriceIsCached(t *testing.T) {
	var calls atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"token_id": "tok", "price": 0.42})
	}))

	for i := 0; i < 3; i++ {
		p, err := c.GetPrice(context.Background(), "tok")
		if err != nil {
			t.Fatalf("get price: %v", err)
		}
		if p != 0.42 {
			t.Fatalf("price = %f", p)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}
}

func TestGetPriceRejectsOutOfRange(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"token_id": "tok", "price": 1.7})
	}))
	if _, err := c.GetPrice(context.Background(), "tok"); err == nil {
		t.Fatal("expected error for price outside [0,1]")
	}
}

func TestPlaceLimitOrder(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode order: %v", err)
		}
		if req.Side != "BUY" || req.Type != "limit" {
			t.Errorf("order = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(orderResponse{OrderID: "ord-1", Status: "open"})
	}))

	id, err := c.PlaceLimitOrder(context.Background(), "tok", "buy", 0.45, 100)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if id != "ord-1" {
		t.Fatalf("order id = %s", id)
	}
}

func TestPlaceLimitOrderRejected(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(orderResponse{OrderID: "ord-2", Status: "rejected"})
	}))
	if _, err := c.PlaceLimitOrder(context.Background(), "tok", "SELL", 0.5, 50); err == nil {
		t.Fatal("expected rejection error")
	}
}

func TestHeartbeatLifecycle(t *testing.T) {
	var pings atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/time" {
			pings.Add(1)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"server_time": time.Now().Unix()})
	}))
	c.cfg.HeartbeatInterval = 20 * time.Millisecond

	if err := c.StartHeartbeat(context.Background()); err != nil {
		t.Fatalf("start heartbeat: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	c.StopHeartbeat()

	if pings.Load() < 2 {
		t.Fatalf("expected inline ping plus ticks, got %d", pings.Load())
	}
	after := pings.Load()
	time.Sleep(60 * time.Millisecond)
	if pings.Load() != after {
		t.Fatal("heartbeat kept running after stop")
	}
}
