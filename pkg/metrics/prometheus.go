package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	stagesTotal     *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	orderAttempts   *prometheus.CounterVec
	dailyPnL        prometheus.Gauge
	openPositions   prometheus.Gauge
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		stagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_pipeline_stages_total",
				Help: "Pipeline stage transitions",
			},
			[]string{"stage"},
		),
		rejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_rejections_total",
				Help: "Signals rejected, by stage and reason",
			},
			[]string{"stage", "reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		orderAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_order_attempts_total",
				Help: "Broker submission attempts, by broker and result",
			},
			[]string{"broker", "result"},
		),
		dailyPnL: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradecore_daily_pnl",
				Help: "Realized profit and loss for the current trading day",
			},
		),
		openPositions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradecore_open_positions",
				Help: "Number of open positions",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradecore_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordStage records a pipeline stage transition.
func (r *Recorder) RecordStage(stage string) {
	r.stagesTotal.WithLabelValues(stage).Inc()
}

// RecordRejection records a rejected signal.
func (r *Recorder) RecordRejection(stage, reason string) {
	r.rejectionsTotal.WithLabelValues(stage, reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordOrderAttempt records one broker submission attempt outcome.
func (r *Recorder) RecordOrderAttempt(broker, result string) {
	r.orderAttempts.WithLabelValues(broker, result).Inc()
}

// RecordDailyPnL updates the daily P&L gauge.
func (r *Recorder) RecordDailyPnL(v float64) {
	r.dailyPnL.Set(v)
}

// RecordOpenPositions updates the open-position gauge.
func (r *Recorder) RecordOpenPositions(n int) {
	r.openPositions.Set(float64(n))
}
