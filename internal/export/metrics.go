package export

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	outcomeSuccess    = "success"
	outcomeInvalid    = "invalid"
	outcomeInFlight   = "in_flight"
	outcomeCapture    = "capture_error"
	outcomeProduction = "produce_error"
)

// Metrics records export counts and durations.
type Metrics struct {
	exports  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.HistogramVec
}

// NewMetrics registers the export collectors on reg. A nil reg uses a
// private registry, which keeps tests isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "card_exports_total",
			Help: "Card exports by format and outcome.",
		}, []string{"format", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "card_export_duration_seconds",
			Help:    "Time spent per export phase.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"format", "phase"}),
		bytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "card_export_bytes",
			Help:    "Size of produced export artifacts.",
			Buckets: prometheus.ExponentialBuckets(16<<10, 2, 10),
		}, []string{"format"}),
	}
}

func (m *Metrics) observeOutcome(f Format, outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(string(f), outcome).Inc()
}

func (m *Metrics) observePhase(f Format, phase string, started time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(string(f), phase).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeSize(f Format, n int) {
	if m == nil {
		return
	}
	m.bytes.WithLabelValues(string(f)).Observe(float64(n))
}
