package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	storeSize      *prometheus.GaugeVec
	evictionsTotal *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "structpulse_signals_total",
				Help: "Total pattern signals emitted",
			},
			[]string{"pattern", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "structpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		storeSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "structpulse_memory_records",
				Help: "Retained break events per partition",
			},
			[]string{"symbol", "timeframe"},
		),
		evictionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "structpulse_memory_evictions_total",
				Help: "Break events evicted by retention or cap",
			},
			[]string{"symbol", "timeframe"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "structpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records one emitted pattern signal.
func (r *Recorder) RecordSignal(pattern, symbol string) {
	r.signalsTotal.WithLabelValues(pattern, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordStoreSize records the retained record count of a partition.
func (r *Recorder) RecordStoreSize(symbol, tf string, n int) {
	r.storeSize.WithLabelValues(symbol, tf).Set(float64(n))
}

// RecordEviction records evicted break events.
func (r *Recorder) RecordEviction(symbol, tf string, n int) {
	r.evictionsTotal.WithLabelValues(symbol, tf).Add(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
