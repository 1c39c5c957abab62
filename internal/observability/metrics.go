package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/islandport/actuator/internal/domain"
)

// Metrics groups every Prometheus collector the engine exposes. All
// collectors are registered against reg at construction time, so tests can
// pass a fresh prometheus.NewRegistry() instead of the global default.
type Metrics struct {
	TickDuration     prometheus.Histogram
	DecisionsByKind  *prometheus.CounterVec
	SchedulerQueue   prometheus.Gauge
	InflightCount    prometheus.Gauge
	InflightBytes    prometheus.Gauge
	CPUPressure      prometheus.Gauge
	NetPressure      prometheus.Gauge
	// ReputationPrior is registered but not observed by ObserveTick or by
	// anything else in this repository.
	ReputationPrior  prometheus.Histogram
}

// NewMetrics registers and returns the engine's collector set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "actuator",
			Subsystem: "frameloop",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent in one Loop.Tick call.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 2, 12),
		}),
		DecisionsByKind: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actuator",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Total gate decisions by kind and reason.",
		}, []string{"kind", "reason"}),
		SchedulerQueue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actuator",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Current number of islands queued for dispatch.",
		}),
		InflightCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actuator",
			Subsystem: "scheduler",
			Name:      "inflight_fetches",
			Help:      "Current number of in-flight prefetches.",
		}),
		InflightBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actuator",
			Subsystem: "scheduler",
			Name:      "inflight_bytes",
			Help:      "Current estimated bytes committed to in-flight prefetches.",
		}),
		CPUPressure: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actuator",
			Subsystem: "pressure",
			Name:      "cpu",
			Help:      "Most recently read CPU pressure signal, in [0,1].",
		}),
		NetPressure: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actuator",
			Subsystem: "pressure",
			Name:      "net",
			Help:      "Most recently read network pressure signal, in [0,1].",
		}),
		ReputationPrior: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "actuator",
			Subsystem: "reputation",
			Name:      "prior",
			Help:      "Distribution of reputation priors.",
			Buckets:   prometheus.LinearBuckets(0, 0.25, 16),
		}),
	}
}

// ObserveTick records one tick's worth of cross-cutting metrics from a
// completed Decision, PressureSignals and scheduler queue depth. Called from
// the frameloop/api boundary, never from inside a core component.
func (m *Metrics) ObserveTick(seconds float64, decision domain.Decision, signals domain.PressureSignals, queueLen, inflightCount int, inflightBytes int64) {
	m.TickDuration.Observe(seconds)
	m.DecisionsByKind.WithLabelValues(decision.Kind.String(), decision.Reason).Inc()
	m.SchedulerQueue.Set(float64(queueLen))
	m.InflightCount.Set(float64(inflightCount))
	m.InflightBytes.Set(float64(inflightBytes))
	m.CPUPressure.Set(signals.CPUPressure)
	m.NetPressure.Set(signals.NetPressure)
}
