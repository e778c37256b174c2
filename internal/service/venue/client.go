package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"scalpd/internal/domain/models"
	drepo "scalpd/internal/domain/repository"
	"scalpd/internal/service/cache"
	"scalpd/internal/service/ratelimit"
	xhttp "scalpd/pkg/http"
	"scalpd/pkg/logger"
)

const ordersKey = "orders"

// Config holds the venue client settings.
type Config struct {
	BaseURL           string
	APIKey            string
	APISecret         string
	Passphrase        string
	RequestTimeout    time.Duration
	HeartbeatInterval time.Duration
	RetryMax          int
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	PriceCacheTTL     time.Duration
	OrdersPerSecond   float64
}

// Client talks to the prediction-market venue. All requests are signed;
// transient failures retry with exponential backoff, and token prices are
// served from a short TTL cache.
type Client struct {
	cfg     Config
	client  *xhttp.Client
	prices  *cache.TTLCache
	limiter *ratelimit.Limiter
	logger  *logger.Logger

	mu            sync.Mutex
	stopHeartbeat context.CancelFunc
	hbWG          sync.WaitGroup
}

// NewClient creates a venue client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.RetryMax < 1 {
		cfg.RetryMax = 3
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 200 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 5 * time.Second
	}
	if cfg.PriceCacheTTL <= 0 {
		cfg.PriceCacheTTL = 2 * time.Second
	}
	if cfg.OrdersPerSecond <= 0 {
		cfg.OrdersPerSecond = 2
	}
	return &Client{
		cfg:     cfg,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.RequestTimeout)),
		prices:  cache.NewTTLCache(),
		limiter: ratelimit.New(),
		logger:  log,
	}
}

var _ drepo.Venue = (*Client)(nil)

// sign produces the request signature headers. The venue verifies an
// HMAC-SHA256 of timestamp+method+path with the API secret.
func (c *Client) sign(method, path string) map[string]string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(ts + method + path))
	return map[string]string{
		"X-API-KEY":        c.cfg.APIKey,
		"X-API-PASSPHRASE": c.cfg.Passphrase,
		"X-API-TIMESTAMP":  ts,
		"X-API-SIGNATURE":  hex.EncodeToString(mac.Sum(nil)),
	}
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
	Asset   string  `json:"asset"`
}

// GetBalance returns the available trading balance in USD.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	err := c.withRetry(ctx, "balance", func() error {
		return c.get(ctx, "/v1/balance", nil, &resp)
	})
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	if resp.Balance < 0 {
		return 0, fmt.Errorf("get balance: negative balance %f", resp.Balance)
	}
	return resp.Balance, nil
}

type windowResponse struct {
	ID          string  `json:"id"`
	Asset       string  `json:"asset"`
	Timeframe   string  `json:"timeframe"`
	Question    string  `json:"question"`
	OpenPrice   float64 `json:"open_price"`
	OpenTime    int64   `json:"open_time"`
	EndTime     int64   `json:"end_time"`
	UpTokenID   string  `json:"up_token_id"`
	DownTokenID string  `json:"down_token_id"`
	UpPrice     float64 `json:"up_price"`
	DownPrice   float64 `json:"down_price"`
}

// FindActiveWindows returns the active windows for an asset and timeframe.
// When no window matches the requested timeframe the first available window
// is returned flagged as a fallback; callers must not trade fallback windows.
func (c *Client) FindActiveWindows(ctx context.Context, asset string, tf drepo.Timeframe) ([]models.MarketWindow, error) {
	var resp []windowResponse
	err := c.withRetry(ctx, "windows", func() error {
		return c.get(ctx, "/v1/markets/windows", map[string][]string{
			"asset": {strings.ToUpper(asset)},
		}, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("find windows %s: %w", asset, err)
	}

	matched := make([]models.MarketWindow, 0, len(resp))
	var firstAvailable *models.MarketWindow
	for _, w := range resp {
		mw := models.MarketWindow{
			ID:          w.ID,
			Asset:       w.Asset,
			Timeframe:   w.Timeframe,
			Question:    w.Question,
			OpenPrice:   w.OpenPrice,
			OpenTime:    time.Unix(w.OpenTime, 0).UTC(),
			EndTime:     time.Unix(w.EndTime, 0).UTC(),
			UpTokenID:   w.UpTokenID,
			DownTokenID: w.DownTokenID,
			UpPrice:     w.UpPrice,
			DownPrice:   w.DownPrice,
		}
		if firstAvailable == nil {
			cp := mw
			firstAvailable = &cp
		}
		if w.Timeframe == string(tf) {
			matched = append(matched, mw)
		}
	}
	if len(matched) > 0 {
		return matched, nil
	}
	if firstAvailable != nil {
		firstAvailable.TimeframeFallback = true
		if c.logger != nil {
			c.logger.Warn("no window matched timeframe, returning fallback",
				logger.String("asset", asset),
				logger.String("requested", string(tf)),
				logger.String("fallback_timeframe", firstAvailable.Timeframe),
				logger.String("window_id", firstAvailable.ID))
		}
		return []models.MarketWindow{*firstAvailable}, nil
	}
	return nil, nil
}

type priceResponse struct {
	TokenID string  `json:"token_id"`
	Price   float64 `json:"price"`
}

// GetPrice returns the live token price in [0, 1], served from a short TTL
// cache to keep repeated lookups inside one cycle off the wire.
func (c *Client) GetPrice(ctx context.Context, tokenID string) (float64, error) {
	if p, ok := c.prices.GetFloat("price:" + tokenID); ok {
		return p, nil
	}

	var resp priceResponse
	err := c.withRetry(ctx, "price", func() error {
		return c.get(ctx, "/v1/prices/"+tokenID, nil, &resp)
	})
	if err != nil {
		return 0, fmt.Errorf("get price %s: %w", tokenID, err)
	}
	if resp.Price < 0 || resp.Price > 1 {
		return 0, fmt.Errorf("get price %s: %f outside [0,1]", tokenID, resp.Price)
	}

	c.prices.Set("price:"+tokenID, resp.Price, c.cfg.PriceCacheTTL)
	return resp.Price, nil
}

type orderRequest struct {
	TokenID string  `json:"token_id"`
	Side    string  `json:"side"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Type    string  `json:"type"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PlaceLimitOrder submits a limit order and returns the venue order ID. Order
// placement is throttled by a token bucket sized from the configured rate.
func (c *Client) PlaceLimitOrder(ctx context.Context, tokenID, side string, price, size float64) (string, error) {
	deadline := time.Now().Add(c.cfg.RequestTimeout)
	if !c.limiter.Wait(ordersKey, c.cfg.OrdersPerSecond, c.cfg.OrdersPerSecond, deadline) {
		return "", fmt.Errorf("place order: rate limit wait timed out")
	}

	body := orderRequest{
		TokenID: tokenID,
		Side:    strings.ToUpper(side),
		Price:   price,
		Size:    size,
		Type:    "limit",
	}
	var resp orderResponse
	err := c.withRetry(ctx, "order", func() error {
		return c.post(ctx, "/v1/orders", body, &resp)
	})
	if err != nil {
		return "", fmt.Errorf("place order %s %s: %w", side, tokenID, err)
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("place order %s %s: venue returned empty order id", side, tokenID)
	}
	if strings.EqualFold(resp.Status, "rejected") {
		return "", fmt.Errorf("place order %s %s: rejected by venue", side, tokenID)
	}
	if c.logger != nil {
		c.logger.Info("order placed",
			logger.String("order_id", resp.OrderID),
			logger.String("token_id", tokenID),
			logger.String("side", body.Side),
			logger.Any("price", price),
			logger.Any("size", size))
	}
	return resp.OrderID, nil
}

// StartHeartbeat begins the keepalive loop. The first ping runs inline so a
// dead venue fails startup instead of a minute later.
func (c *Client) StartHeartbeat(ctx context.Context) error {
	if err := c.ping(ctx); err != nil {
		return fmt.Errorf("venue heartbeat: %w", err)
	}

	hbCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.stopHeartbeat != nil {
		c.stopHeartbeat()
	}
	c.stopHeartbeat = cancel
	c.mu.Unlock()

	interval := c.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	c.hbWG.Add(1)
	go func() {
		defer c.hbWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				pingCtx, pingCancel := context.WithTimeout(hbCtx, c.cfg.RequestTimeout)
				if err := c.ping(pingCtx); err != nil && c.logger != nil {
					c.logger.Warn("venue heartbeat failed", logger.Error(err))
				}
				pingCancel()
			}
		}
	}()
	return nil
}

// StopHeartbeat stops the keepalive loop and waits for it to exit.
func (c *Client) StopHeartbeat() {
	c.mu.Lock()
	if c.stopHeartbeat != nil {
		c.stopHeartbeat()
		c.stopHeartbeat = nil
	}
	c.mu.Unlock()
	c.hbWG.Wait()
}

func (c *Client) ping(ctx context.Context) error {
	var resp struct {
		ServerTime int64 `json:"server_time"`
	}
	return c.get(ctx, "/v1/time", nil, &resp)
}

func (c *Client) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	return c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.cfg.BaseURL + path,
		Headers:     c.sign(xhttp.MethodGet, path),
		QueryParams: query,
	}, dest)
}

func (c *Client) post(ctx context.Context, path string, body, dest interface{}) error {
	return c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.cfg.BaseURL + path,
		Headers: c.sign(xhttp.MethodPost, path),
		Body:    body,
	}, dest)
}

// withRetry runs fn up to RetryMax times with exponential backoff bounded by
// BackoffMin and BackoffMax.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	backoff := c.cfg.BackoffMin
	for attempt := 1; attempt <= c.cfg.RetryMax; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == c.cfg.RetryMax {
			break
		}
		if c.logger != nil {
			c.logger.Debug("venue request retrying",
				logger.String("op", op),
				logger.Int("attempt", attempt),
				logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.BackoffMax {
			backoff = c.cfg.BackoffMax
		}
	}
	return err
}
