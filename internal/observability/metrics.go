package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/canonica-labs/engarde/pkg/models"
)

// Metrics holds the run counters on a private registry, so repeated
// construction in tests never collides with the global one.
type Metrics struct {
	registry    *prometheus.Registry
	checks      *prometheus.CounterVec
	violations  *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engarde_checks_total",
				Help: "Checks evaluated, by check name and outcome",
			},
			[]string{"check", "outcome"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engarde_violations_total",
				Help: "Violating cell locations reported, by check name",
			},
			[]string{"check"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engarde_runs_total",
				Help: "Contract runs, by contract and outcome",
			},
			[]string{"contract", "outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "engarde_run_duration_seconds",
				Help:    "Wall time of contract runs including the source load",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
	}

	m.registry.MustRegister(m.checks, m.violations, m.runs, m.runDuration)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(r *models.Report) {
	m.runs.WithLabelValues(r.Contract, string(r.Outcome)).Inc()
	m.runDuration.Observe(float64(r.DurationMs) / 1000)

	for _, res := range r.Results {
		m.checks.WithLabelValues(res.Check, string(res.Outcome)).Inc()
		if n := len(res.Locations); n > 0 {
			m.violations.WithLabelValues(res.Check).Add(float64(n))
		}
	}
}

// WriteTextfile writes the current values in the node_exporter textfile
// collector format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
