// Package telemetry exposes the engine's Prometheus instrumentation: tick
// duration, per-reason-code decision counts, and the current stress level.
package telemetry

import (
	"net/http"

	"github.com/kledx/toxictide/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument the engine exports, plus the registry they
// were registered on so Handler can serve exactly those collectors.
type Metrics struct {
	registry       *prometheus.Registry
	TickDuration   prometheus.Histogram
	DecisionTotal  *prometheus.CounterVec
	ReasonTotal    *prometheus.CounterVec
	StressLevel    prometheus.Gauge
	TicksProcessed prometheus.Counter
}

// New registers every metric on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "toxictide",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one orchestrator pipeline tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		DecisionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toxictide",
			Name:      "risk_decisions_total",
			Help:      "Count of RiskGuardian decisions by action.",
		}, []string{"action"}),
		ReasonTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toxictide",
			Name:      "risk_reason_codes_total",
			Help:      "Count of RiskGuardian reason codes emitted.",
		}, []string{"reason"}),
		StressLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "toxictide",
			Name:      "market_stress_level",
			Help:      "Current market stress level (0=OK, 1=WARN, 2=DANGER).",
		}),
		TicksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "toxictide",
			Name:      "ticks_processed_total",
			Help:      "Total number of orchestrator ticks completed.",
		}),
	}
}

// ObserveDecision records a RiskDecision's action and reason codes.
func (m *Metrics) ObserveDecision(d types.RiskDecision) {
	m.DecisionTotal.WithLabelValues(string(d.Action)).Inc()
	for _, r := range d.Reasons {
		m.ReasonTotal.WithLabelValues(string(r)).Inc()
	}
}

// ObserveStress records the current stress level as a numeric gauge.
func (m *Metrics) ObserveStress(level types.Level) {
	switch level {
	case types.LevelDanger:
		m.StressLevel.Set(2)
	case types.LevelWarn:
		m.StressLevel.Set(1)
	default:
		m.StressLevel.Set(0)
	}
}

// Handler returns the HTTP handler to mount at /metrics, scoped to the
// registry this Metrics was constructed with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
