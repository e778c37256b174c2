package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycleDuration prometheus.Histogram
	errorsTotal   *prometheus.CounterVec
	signalsTotal  *prometheus.CounterVec
	tradesClosed  *prometheus.CounterVec
	balance       prometheus.Gauge
	peakBalance   prometheus.Gauge
	drawdown      prometheus.Gauge
	openPositions prometheus.Gauge
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scalpd_cycle_duration_seconds",
				Help:    "Duration of full trading cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalpd_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalpd_signals_total",
				Help: "Signals produced by the ensemble by direction",
			},
			[]string{"direction"},
		),
		tradesClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalpd_trades_closed_total",
				Help: "Closed trades by outcome",
			},
			[]string{"outcome"},
		),
		balance: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scalpd_balance_usd",
				Help: "Current account balance in USD",
			},
		),
		peakBalance: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scalpd_peak_balance_usd",
				Help: "Peak account balance in USD",
			},
		),
		drawdown: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scalpd_drawdown_percent",
				Help: "Current drawdown from peak balance in percent",
			},
		),
		openPositions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scalpd_open_positions",
				Help: "Number of open positions",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scalpd_last_price",
				Help: "Last recorded price for an asset",
			},
			[]string{"asset"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scalpd_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records a full cycle duration.
func (r *Recorder) RecordCycle(seconds float64) {
	r.cycleDuration.Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSignal records an ensemble signal by direction.
func (r *Recorder) RecordSignal(direction string) {
	r.signalsTotal.WithLabelValues(direction).Inc()
}

// RecordTradeClosed records a closed trade by outcome.
func (r *Recorder) RecordTradeClosed(outcome string) {
	r.tradesClosed.WithLabelValues(outcome).Inc()
}

// SetBalance sets the current balance gauge.
func (r *Recorder) SetBalance(balance float64) {
	r.balance.Set(balance)
}

// SetPeakBalance sets the peak balance gauge.
func (r *Recorder) SetPeakBalance(peak float64) {
	r.peakBalance.Set(peak)
}

// SetDrawdown sets the drawdown gauge.
func (r *Recorder) SetDrawdown(pct float64) {
	r.drawdown.Set(pct)
}

// SetOpenPositions sets the open position count gauge.
func (r *Recorder) SetOpenPositions(n int) {
	r.openPositions.Set(float64(n))
}

// SetLastPrice records the last price for an asset.
func (r *Recorder) SetLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
