// Package metrics holds the Prometheus instruments of the scenario engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Computation results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"
)

// Registry holds all metrics on a dedicated Prometheus registry
type Registry struct {
	reg *prometheus.Registry

	CacheLookups       *prometheus.CounterVec
	Computations       *prometheus.CounterVec
	ComputeDuration    *prometheus.HistogramVec
	RowsWritten        prometheus.Counter
	PopulationRuns     *prometheus.CounterVec
	PopulationDuration prometheus.Histogram
}

// New creates and registers every metric
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analogs_cache_lookups_total",
				Help: "Score cache lookups by result",
			},
			[]string{"result"},
		),

		Computations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analogs_computations_total",
				Help: "Live portfolio score computations by result",
			},
			[]string{"result"},
		),

		ComputeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analogs_compute_duration_seconds",
				Help:    "Duration of scoring every portfolio for one analog",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"source"},
		),

		RowsWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analogs_cache_rows_written_total",
				Help: "Score rows written by the population job",
			},
		),

		PopulationRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analogs_population_runs_total",
				Help: "Population job runs by outcome",
			},
			[]string{"outcome"},
		),

		PopulationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analogs_population_duration_seconds",
				Help:    "Duration of a full population run",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
	}

	r.reg.MustRegister(
		r.CacheLookups,
		r.Computations,
		r.ComputeDuration,
		r.RowsWritten,
		r.PopulationRuns,
		r.PopulationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
