package recalc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics holds the cascade collectors. A nil *Metrics records nothing.
type Metrics struct {
	cascades *prometheus.CounterVec
	duration *prometheus.HistogramVec
	warnings prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cascades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rally",
			Subsystem: "recalc",
			Name:      "cascades_total",
			Help:      "Recalculation cascades by scope and outcome.",
		}, []string{"scope", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rally",
			Subsystem: "recalc",
			Name:      "cascade_duration_seconds",
			Help:      "Time spent inside a cascade transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rally",
			Subsystem: "recalc",
			Name:      "referential_warnings_total",
			Help:      "Stage results skipped because they reference another race or an unregistered rider.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.cascades, m.duration, m.warnings)
	}
	return m
}

func (m *Metrics) observe(scope Scope, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cascades.WithLabelValues(string(scope), outcome).Inc()
	m.duration.WithLabelValues(string(scope)).Observe(d.Seconds())
}

func (m *Metrics) addWarnings(n int) {
	if m == nil || n == 0 {
		return
	}
	m.warnings.Add(float64(n))
}
