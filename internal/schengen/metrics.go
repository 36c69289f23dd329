package schengen

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors the engine reports to.
type Metrics struct {
	AggregateRuns     *prometheus.CounterVec
	DaysWritten       prometheus.Counter
	SamplesSkipped    prometheus.Counter
	AggregateDuration prometheus.Histogram
	Computes          *prometheus.CounterVec
	ComputeDuration   prometheus.Histogram
	CacheLookups      *prometheus.CounterVec
}

// NewMetrics registers the engine collectors against reg, defaulting to the
// global registry when nil. Registering twice returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schengen_aggregate_runs_total",
		Help: "Driver aggregation runs, labeled by result.",
	}, []string{"result"}), "schengen_aggregate_runs_total")
	if err != nil {
		return nil, err
	}
	days, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schengen_days_written_total",
		Help: "Day presence facts upserted.",
	}), "schengen_days_written_total")
	if err != nil {
		return nil, err
	}
	skipped, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schengen_samples_skipped_total",
		Help: "Position samples ignored for missing or invalid coordinates.",
	}), "schengen_samples_skipped_total")
	if err != nil {
		return nil, err
	}
	aggDur, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schengen_aggregate_duration_seconds",
		Help:    "Per-driver aggregation latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}), "schengen_aggregate_duration_seconds")
	if err != nil {
		return nil, err
	}
	computes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schengen_compute_total",
		Help: "Compliance computations, labeled by mode (window|override) and source.",
	}, []string{"mode", "source"}), "schengen_compute_total")
	if err != nil {
		return nil, err
	}
	compDur, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schengen_compute_duration_seconds",
		Help:    "Compliance computation latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}), "schengen_compute_duration_seconds")
	if err != nil {
		return nil, err
	}
	lookups, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schengen_cache_lookups_total",
		Help: "Result cache lookups, labeled by outcome (hit|miss|error).",
	}, []string{"outcome"}), "schengen_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		AggregateRuns:     runs,
		DaysWritten:       days,
		SamplesSkipped:    skipped,
		AggregateDuration: aggDur,
		Computes:          computes,
		ComputeDuration:   compDur,
		CacheLookups:      lookups,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}

// The helpers below tolerate a nil receiver so the engine can run unmetered.

func (m *Metrics) aggregated(result string, days, skipped uint32, seconds float64) {
	if m == nil {
		return
	}
	m.AggregateRuns.WithLabelValues(result).Inc()
	m.DaysWritten.Add(float64(days))
	m.SamplesSkipped.Add(float64(skipped))
	m.AggregateDuration.Observe(seconds)
}

func (m *Metrics) computed(mode, source string, seconds float64) {
	if m == nil {
		return
	}
	m.Computes.WithLabelValues(mode, source).Inc()
	m.ComputeDuration.Observe(seconds)
}

func (m *Metrics) cacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}
