package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scalpd/internal/domain/models"
	drepo "scalpd/internal/domain/repository"
	"scalpd/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream implements a MarketStream backed by the Binance kline WebSocket.
type Stream struct {
	websocketURL   string
	assets         []string
	timeframe      drepo.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logger.Logger

	conn      *websocket.Conn
	connected bool
}

// NewStream creates a Binance kline MarketStream for the given assets.
func NewStream(websocketURL string, assets []string, tf drepo.Timeframe, reconnectDelay, pingInterval time.Duration, log *logger.Logger) drepo.MarketStream {
	return &Stream{
		websocketURL:   websocketURL,
		assets:         assets,
		timeframe:      tf,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         log,
	}
}

var _ drepo.MarketStream = (*Stream)(nil)

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	if s.logger != nil {
		s.logger.Info("binance stream connected")
	}
	return nil
}

// Subscribe subscribes to the kline stream for every configured asset.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("binance stream not connected")
	}
	params := make([]string, 0, len(s.assets))
	for _, a := range s.assets {
		params = append(params, fmt.Sprintf("%s@kline_%s", strings.ToLower(Pair(a)), s.timeframe))
	}
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     1,
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe klines: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("binance stream subscribed", logger.Strings("streams", params))
	}
	return nil
}

type wsKline struct {
	OpenTime int64  `json:"t"`
	Symbol   string `json:"s"`
	Interval string `json:"i"`
	Open     string `json:"o"`
	Close    string `json:"c"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

type wsMessage struct {
	Event string  `json:"e"`
	Kline wsKline `json:"k"`
}

// Read streams kline candles and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	candles := make(chan *models.Candle, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(candles)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("binance conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-kline frames
					continue
				}
				if m.Event != "kline" {
					continue
				}
				candle := klineToCandle(m.Kline)
				select {
				case candles <- candle:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return candles, errs
}

func klineToCandle(k wsKline) *models.Candle {
	return &models.Candle{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      wsFloat(k.Open),
		High:      wsFloat(k.High),
		Low:       wsFloat(k.Low),
		Close:     wsFloat(k.Close),
		Volume:    wsFloat(k.Volume),
		Asset:     strings.TrimSuffix(strings.ToUpper(k.Symbol), "USDT"),
		Timeframe: k.Interval,
		Closed:    k.Closed,
	}
}

func wsFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
