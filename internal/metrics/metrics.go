// Package metrics holds the Prometheus collectors for obligation generation,
// bulk status edits, event publishing and the account cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in
// tests. All methods are safe on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	generationRuns     *prometheus.CounterVec
	generationDuration prometheus.Histogram
	entriesGenerated   prometheus.Counter
	entriesReconciled  prometheus.Counter
	obligationsSkipped *prometheus.CounterVec
	generationFailures prometheus.Counter
	bulkOperations     *prometheus.CounterVec
	publishResults     *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		generationRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_generation_runs_total",
				Help: "Generation passes by outcome.",
			},
			[]string{"outcome"},
		),
		generationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "planner_generation_duration_seconds",
				Help:    "Duration of a full generation pass.",
				Buckets: prometheus.DefBuckets,
			},
		),
		entriesGenerated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_entries_generated_total",
				Help: "Ledger entries created from obligations.",
			},
		),
		entriesReconciled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_entries_reconciled_total",
				Help: "Occurrences whose entry already existed and only progress advanced.",
			},
		),
		obligationsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_obligations_skipped_total",
				Help: "Obligations checked without generating, by reason.",
			},
			[]string{"reason"},
		),
		generationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_generation_failures_total",
				Help: "Obligations that failed during a generation pass.",
			},
		),
		bulkOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_bulk_operations_total",
				Help: "Bulk status edits by final state.",
			},
			[]string{"state"},
		),
		publishResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_events_published_total",
				Help: "Ledger entry events published, by result.",
			},
			[]string{"result"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_cache_lookups_total",
				Help: "Account cache lookups by result.",
			},
			[]string{"result"},
		),
	}
}

// RecordGenerationRun records one completed or failed pass.
func (m *Metrics) RecordGenerationRun(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.generationRuns.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(d.Seconds())
}

// RecordGenerationCounts adds the per-obligation outcomes of a pass.
func (m *Metrics) RecordGenerationCounts(generated, reconciled, failures int, skipped map[string]int) {
	if m == nil {
		return
	}
	m.entriesGenerated.Add(float64(generated))
	m.entriesReconciled.Add(float64(reconciled))
	m.generationFailures.Add(float64(failures))
	for reason, n := range skipped {
		m.obligationsSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) IncrBulk(state string) {
	if m == nil {
		return
	}
	m.bulkOperations.WithLabelValues(state).Inc()
}

func (m *Metrics) IncrPublish(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.publishResults.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
