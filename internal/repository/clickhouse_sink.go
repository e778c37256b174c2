package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"scalpd/internal/domain/models"
	domrepo "scalpd/internal/domain/repository"
	pkgch "scalpd/pkg/clickhouse"
	applogger "scalpd/pkg/logger"
)

// CHAnalyticsSink implements AnalyticsSink backed by ClickHouse. Inserts are
// fire-and-forget records for offline analysis; the engine never reads them
// back on the hot path.
type CHAnalyticsSink struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHAnalyticsSink(ch *pkgch.Client) *CHAnalyticsSink {
	return &CHAnalyticsSink{db: ch.DB()}
}

var _ domrepo.AnalyticsSink = (*CHAnalyticsSink)(nil)

// SetLogger injects a structured logger.
func (s *CHAnalyticsSink) SetLogger(l *applogger.Logger) { s.l = l }

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS trades (
        id String,
        position_id String,
        asset LowCardinality(String),
        timeframe LowCardinality(String),
        direction LowCardinality(String),
        entry_price Float64,
        exit_price Float64,
        quantity Float64,
        pnl_usd Float64,
        pnl_percent Float64,
        exit_reason String,
        strategy LowCardinality(String),
        pattern_id String,
        regime LowCardinality(String),
        session LowCardinality(String),
        opened_at DateTime64(3, 'UTC'),
        closed_at DateTime64(3, 'UTC')
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(closed_at)
    ORDER BY (asset, closed_at)`,
	`CREATE TABLE IF NOT EXISTS signals (
        asset LowCardinality(String),
        timeframe LowCardinality(String),
        direction LowCardinality(String),
        confidence Float64,
        strength LowCardinality(String),
        strategy LowCardinality(String),
        price Float64,
        regime LowCardinality(String),
        session LowCardinality(String),
        reasons String,
        ts DateTime64(3, 'UTC')
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(ts)
    ORDER BY (asset, ts)`,
	`CREATE TABLE IF NOT EXISTS daily_rollups (
        date Date,
        trades UInt32,
        wins UInt32,
        losses UInt32,
        pnl_usd Float64,
        start_balance Float64,
        end_balance Float64,
        max_drawdown Float64,
        created_at DateTime64(3, 'UTC')
    ) ENGINE = ReplacingMergeTree(created_at)
    ORDER BY date`,
}

// Init creates the analytics tables when they do not exist.
func (s *CHAnalyticsSink) Init(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init analytics schema: %w", err)
		}
	}
	if s.l != nil {
		s.l.Info("clickhouse analytics schema ready")
	}
	return nil
}

func (s *CHAnalyticsSink) InsertTrade(ctx context.Context, t *models.Trade) error {
	start := time.Now()
	const q = `
        INSERT INTO trades (
            id, position_id, asset, timeframe, direction,
            entry_price, exit_price, quantity, pnl_usd, pnl_percent,
            exit_reason, strategy, pattern_id, regime, session,
            opened_at, closed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q,
		t.ID, t.PositionID, t.Asset, t.Timeframe, string(t.Direction),
		t.EntryPrice, t.ExitPrice, t.Quantity, t.PnLUSD, t.PnLPercent,
		t.ExitReason, t.Strategy, t.PatternID, string(t.Regime), string(t.Session),
		t.OpenedAt, t.ClosedAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert_trade error",
				applogger.String("trade_id", t.ID),
				applogger.String("asset", t.Asset),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse insert_trade ok",
			applogger.String("trade_id", t.ID),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHAnalyticsSink) InsertSignal(ctx context.Context, sig *models.Signal) error {
	const q = `
        INSERT INTO signals (
            asset, timeframe, direction, confidence, strength,
            strategy, price, regime, session, reasons, ts
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q,
		sig.Asset, sig.Timeframe, string(sig.Direction), sig.Confidence, string(sig.Strength),
		sig.Strategy, sig.Price, string(sig.Regime), string(sig.Session),
		strings.Join(sig.Reasons, "; "), sig.Timestamp,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert_signal error",
				applogger.String("asset", sig.Asset),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *CHAnalyticsSink) InsertDailyRollup(ctx context.Context, r *models.DailyRollup) error {
	const q = `
        INSERT INTO daily_rollups (
            date, trades, wins, losses, pnl_usd,
            start_balance, end_balance, max_drawdown, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q,
		r.Date, r.Trades, r.Wins, r.Losses, r.PnLUSD,
		r.StartBalance, r.EndBalance, r.MaxDrawdown, r.CreatedAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert_rollup error",
				applogger.String("date", r.Date),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert daily rollup: %w", err)
	}
	return nil
}

// Health performs a connectivity check.
func (s *CHAnalyticsSink) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the shared pool is owned by the clickhouse client.
func (s *CHAnalyticsSink) Close() error { return nil }
