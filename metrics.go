package vocana

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the optional Prometheus instrumentation for a
// pipeline. A nil *Metrics is valid and records nothing, so callers
// that don't care about observability never have to touch this type.
type Metrics struct {
	framesProcessed prometheus.Counter
	processLatency  prometheus.Histogram
	rejected        *prometheus.CounterVec
	nonFiniteFixups *prometheus.CounterVec
}

// NewMetrics registers pipeline counters/histograms against reg and
// returns a Metrics handle. If reg is nil, the returned Metrics
// records nothing (nil-safe no-op), so metrics remain an optional
// ambient concern rather than a hard dependency.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		framesProcessed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "vocana",
			Name:      "frames_processed_total",
			Help:      "Number of STFT frames successfully processed.",
		}),
		processLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "vocana",
			Name:      "process_latency_seconds",
			Help:      "Latency of Pipeline.Process calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		rejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "vocana",
			Name:      "process_rejected_total",
			Help:      "Number of Process calls rejected, by error kind.",
		}, []string{"kind"}),
		nonFiniteFixups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "vocana",
			Name:      "nonfinite_fixups_total",
			Help:      "Number of internal non-finite values coerced to zero, by stage.",
		}, []string{"stage"}),
	}
	return m
}

func (m *Metrics) observeFrames(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.framesProcessed.Add(float64(n))
}

func (m *Metrics) observeLatencySeconds(s float64) {
	if m == nil {
		return
	}
	m.processLatency.Observe(s)
}

func (m *Metrics) observeRejected(kind ErrorKind) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeNonFiniteFixup(stage string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.nonFiniteFixups.WithLabelValues(stage).Add(float64(count))
}
