package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"scalpd/internal/domain/models"
	drepo "scalpd/internal/domain/repository"
	xhttp "scalpd/pkg/http"
	"scalpd/pkg/logger"
)

// REST implements MarketData against the Binance spot REST API. Transient
// failures are retried with backoff; a failed ticker fetch degrades to the
// last good value marked stale instead of failing the cycle.
type REST struct {
	baseURL  string
	client   *xhttp.Client
	retryMax int
	logger   *logger.Logger

	mu          sync.RWMutex
	lastTickers map[string]*models.Ticker
}

// NewREST creates a Binance REST market data client.
func NewREST(baseURL string, timeout time.Duration, retryMax int, log *logger.Logger) drepo.MarketData {
	if retryMax < 1 {
		retryMax = 3
	}
	return &REST{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      xhttp.NewClient(xhttp.WithTimeout(timeout)),
		retryMax:    retryMax,
		logger:      log,
		lastTickers: make(map[string]*models.Ticker),
	}
}

var _ drepo.MarketData = (*REST)(nil)

// Pair maps a bare asset name to its Binance spot symbol.
func Pair(asset string) string {
	s := strings.ToUpper(asset)
	if strings.Contains(s, "USDT") {
		return s
	}
	return s + "USDT"
}

// FetchCandles returns up to limit most-recent klines, oldest first.
func (r *REST) FetchCandles(ctx context.Context, asset string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	var raw []byte
	err := r.withRetry(ctx, "klines", func() error {
		return r.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    r.baseURL + "/api/v3/klines",
			QueryParams: map[string][]string{
				"symbol":   {Pair(asset)},
				"interval": {string(tf)},
				"limit":    {strconv.Itoa(limit)},
			},
		}, &raw)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", asset, tf, err)
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	now := time.Now().UTC()
	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := parseKline(row, asset, string(tf), now)
		if err != nil {
			return nil, fmt.Errorf("parse kline: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// parseKline decodes one Binance kline row:
// [openTimeMs, open, high, low, close, volume, closeTimeMs, ...].
func parseKline(row []json.RawMessage, asset, tf string, now time.Time) (models.Candle, error) {
	if len(row) < 7 {
		return models.Candle{}, fmt.Errorf("kline row has %d fields", len(row))
	}

	var openMs, closeMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return models.Candle{}, err
	}
	if err := json.Unmarshal(row[6], &closeMs); err != nil {
		return models.Candle{}, err
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(row[i], &s); err != nil {
			return models.Candle{}, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, err
		}
		vals[i-1] = f
	}

	return models.Candle{
		Timestamp: time.UnixMilli(openMs).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
		Asset:     asset,
		Timeframe: tf,
		Closed:    time.UnixMilli(closeMs).UTC().Before(now),
	}, nil
}

type ticker24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
}

// FetchTicker returns the 24h ticker. On failure it serves the last good
// ticker for the asset, marked stale, so one bad fetch never blinds a cycle.
func (r *REST) FetchTicker(ctx context.Context, asset string) (*models.Ticker, error) {
	var t ticker24h
	err := r.withRetry(ctx, "ticker", func() error {
		return r.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    r.baseURL + "/api/v3/ticker/24hr",
			QueryParams: map[string][]string{
				"symbol": {Pair(asset)},
			},
		}, &t)
	})
	if err != nil {
		r.mu.RLock()
		last := r.lastTickers[asset]
		r.mu.RUnlock()
		if last != nil {
			stale := *last
			stale.Stale = true
			if r.logger != nil {
				r.logger.Warn("ticker fetch failed, serving stale",
					logger.String("asset", asset),
					logger.Error(err))
			}
			return &stale, nil
		}
		return nil, fmt.Errorf("fetch ticker %s: %w", asset, err)
	}

	out := &models.Ticker{
		Symbol:             t.Symbol,
		LastPrice:          parseFloat(t.LastPrice),
		PriceChange:        parseFloat(t.PriceChange),
		PriceChangePercent: parseFloat(t.PriceChangePercent),
		HighPrice:          parseFloat(t.HighPrice),
		LowPrice:           parseFloat(t.LowPrice),
		Volume:             parseFloat(t.Volume),
		QuoteVolume:        parseFloat(t.QuoteVolume),
		FetchedAt:          time.Now().UTC(),
	}
	if out.LastPrice <= 0 {
		return nil, fmt.Errorf("ticker %s: non-positive last price", asset)
	}

	r.mu.Lock()
	r.lastTickers[asset] = out
	r.mu.Unlock()
	return out, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// withRetry runs fn up to retryMax times with exponential backoff.
func (r *REST) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	backoff := 200 * time.Millisecond
	for attempt := 1; attempt <= r.retryMax; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == r.retryMax {
			break
		}
		if r.logger != nil {
			r.logger.Debug("binance request retrying",
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
	}
	return err
}
