package arbitrage

import (
	"fmt"
	"math"
	"sync"
	"time"

	"scalpd/internal/domain/models"
	"scalpd/internal/domain/repository"
	"scalpd/pkg/logger"
)

const (
	// fairProbCap bounds the momentum adjustment to the 0.5 base probability.
	fairProbCap = 0.4
	// probPerPercent converts price movement percent to implied probability.
	probPerPercent = 0.15

	momentumWindow = 5 * time.Minute

	// Confidence factor weights; they sum to 1.
	weightMomentum  = 0.35
	weightTimeDecay = 0.30
	weightAgreement = 0.15
	weightPairSum   = 0.20

	// Single exchange feed: the agreement factor is held at neutral until a
	// second source exists.
	neutralAgreement = 0.5

	signalTTL = 30 * time.Second
)

// Config bounds which mispricings become signals.
type Config struct {
	MinEdgePercent float64
	MinConfidence  float64 // 0-1
}

// Detector compares exchange momentum against prediction-market implied
// probability and emits time-bounded mispricing signals.
type Detector struct {
	cfg      Config
	mu       sync.Mutex
	feeds    map[string]*PriceFeed
	accuracy *AccuracyTracker
	logger   *logger.Logger
}

func NewDetector(cfg Config, log *logger.Logger) *Detector {
	return &Detector{
		cfg:      cfg,
		feeds:    make(map[string]*PriceFeed),
		accuracy: NewAccuracyTracker(),
		logger:   log,
	}
}

// Feed returns the price feed for an asset, creating it on first use.
func (d *Detector) Feed(asset string) *PriceFeed {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.feeds[asset]
	if !ok {
		f = NewPriceFeed()
		d.feeds[asset] = f
	}
	return f
}

// RecordPrice adds an exchange price sample for the asset.
func (d *Detector) RecordPrice(asset string, price float64, at time.Time) {
	d.Feed(asset).Add(price, at)
}

// Accuracy exposes the rolling outcome statistics.
func (d *Detector) Accuracy() *AccuracyTracker { return d.accuracy }

// RecordOutcome feeds one resolved window trade back into the rolling
// accuracy statistics.
func (d *Detector) RecordOutcome(asset, timeframe string, won bool) {
	d.accuracy.Record(asset, timeframe, won)
}

// AnalyzeWindow evaluates one active market window. It returns nil whenever
// no actionable mispricing exists; nil is the common case, not a failure.
func (d *Detector) AnalyzeWindow(w models.MarketWindow, now time.Time) *models.ArbitrageSignal {
	if w.TimeframeFallback {
		if d.logger != nil {
			d.logger.Warn("skipping fallback-selected window",
				logger.String("window", w.ID),
				logger.String("asset", w.Asset))
		}
		return nil
	}

	tf := repository.NormalizeTimeframe(w.Timeframe)
	remaining := w.Remaining(now)
	if remaining < tf.MinWindowRemaining() {
		return nil
	}
	if w.OpenPrice <= 0 || w.UpPrice <= 0 || w.DownPrice <= 0 {
		return nil
	}

	feed := d.Feed(w.Asset)
	current, ok := feed.Last()
	if !ok {
		return nil
	}

	movement := (current - w.OpenPrice) / w.OpenPrice * 100

	// Implied probability that the window resolves UP.
	adj := movement * probPerPercent
	if adj > fairProbCap {
		adj = fairProbCap
	}
	if adj < -fairProbCap {
		adj = -fairProbCap
	}
	fairUp := models.ClampProbability(0.5 + adj)

	// Trade the side momentum points to; buying the opposite side is
	// catching a falling knife regardless of how cheap it looks.
	var (
		dir         models.Direction
		tokenID     string
		marketPrice float64
		fair        float64
	)
	switch {
	case movement > 0:
		dir = models.Long
		tokenID = w.UpTokenID
		marketPrice = w.UpPrice
		fair = fairUp
	case movement < 0:
		dir = models.Short
		tokenID = w.DownTokenID
		marketPrice = w.DownPrice
		fair = 1 - fairUp
	default:
		return nil
	}

	misprice := fair - marketPrice
	if misprice <= 0 {
		// The momentum side is already fully priced; no aligned edge.
		return nil
	}
	edge := misprice / marketPrice * 100
	if edge < d.cfg.MinEdgePercent {
		return nil
	}

	velocity := feed.Velocity(momentumWindow, now)
	consistency := feed.Consistency(momentumWindow, now)
	momentumStrength := math.Min(math.Abs(velocity)*consistency, 1)

	progress := w.Progress(now)
	timeDecay := 1.0 - 0.7*progress // 1.0 early, 0.3 at resolution

	pairSum := w.UpPrice + w.DownPrice
	pairHealth := math.Max(0, 1-math.Abs(pairSum-1)*5)

	confidence := models.ClampProbability(
		weightMomentum*momentumStrength +
			weightTimeDecay*timeDecay +
			weightAgreement*neutralAgreement +
			weightPairSum*pairHealth)
	if confidence < d.cfg.MinConfidence {
		return nil
	}

	expires := now.Add(signalTTL)
	if end := w.EndTime; end.Before(expires) {
		expires = end
	}

	return &models.ArbitrageSignal{
		Asset:          w.Asset,
		Timeframe:      string(tf),
		WindowID:       w.ID,
		TokenID:        tokenID,
		Direction:      dir,
		Action:         models.ActionBuy,
		Confidence:     confidence,
		EdgePercentage: edge,
		MispriceAmount: misprice,
		PriceMovement:  movement,
		WindowProgress: progress,
		MarketPrice:    marketPrice,
		FairPrice:      fair,
		Reasons: []string{
			fmt.Sprintf("price moved %.2f%% since window open", movement),
			fmt.Sprintf("fair %.2f vs market %.2f, edge %.2f%%", fair, marketPrice, edge),
			fmt.Sprintf("momentum strength %.2f, window progress %.0f%%", momentumStrength, progress*100),
		},
		WindowEndsAt: w.EndTime,
		ExpiresAt:    expires,
		DetectedAt:   now,
	}
}
