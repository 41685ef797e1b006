// Package prometheus registers the core's operational metrics.  The metrics
// endpoint itself is served by the excluded admin layer; this package only
// owns the registry and the instruments the calculators and lifecycle
// service record into.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default duration buckets for computation paths (seconds).
var defaultDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5, 30}

// Metrics holds every instrument the core records.
type Metrics struct {
	registry *prometheus.Registry

	// Aggregation engine
	RecomputesTotal   *prometheus.CounterVec // labels: group, outcome
	RecomputeDuration *prometheus.HistogramVec
	ProdConsRows      prometheus.Gauge

	// Submission lifecycle
	TransitionsTotal *prometheus.CounterVec // labels: obligation, transition, outcome
	VersionsCreated  *prometheus.CounterVec // labels: obligation
	PromotionsTotal  *prometheus.CounterVec // labels: obligation, outcome

	// Baseline / limit calculators
	BaselineRunsTotal    *prometheus.CounterVec // labels: baseline_type, outcome
	LimitRunsTotal       *prometheus.CounterVec // labels: limit_type, outcome
	BatchRunDuration     *prometheus.HistogramVec
	ReconciliationDiffs  *prometheus.CounterVec // labels: kind, category
	ReconciliationApplied *prometheus.CounterVec
}

// New constructs a Metrics set on a fresh registry namespaced "ozone".
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := func(name, help string, labels ...string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ozone", Name: name, Help: help,
		}, labels)
		reg.MustRegister(c)
		return c
	}

	m := &Metrics{registry: reg}
	m.RecomputesTotal = factory("aggregation_recomputes_total", "ProdCons recompute invocations", "group", "outcome")
	m.TransitionsTotal = factory("lifecycle_transitions_total", "Executed workflow transitions", "obligation", "transition", "outcome")
	m.VersionsCreated = factory("lifecycle_versions_created_total", "New submission versions created", "obligation")
	m.PromotionsTotal = factory("lifecycle_promotions_total", "Recall-triggered promotions of prior versions", "obligation", "outcome")
	m.BaselineRunsTotal = factory("baseline_computations_total", "Baseline computations", "baseline_type", "outcome")
	m.LimitRunsTotal = factory("limit_computations_total", "Limit computations", "limit_type", "outcome")
	m.ReconciliationDiffs = factory("reconciliation_diffs_total", "Reconciliation report entries", "kind", "category")
	m.ReconciliationApplied = factory("reconciliation_applied_total", "Reconciliation corrections applied", "kind", "category")

	m.RecomputeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ozone", Name: "aggregation_recompute_duration_seconds",
		Help: "ProdCons recompute duration", Buckets: defaultDurationBuckets,
	}, []string{"group"})
	reg.MustRegister(m.RecomputeDuration)

	m.BatchRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ozone", Name: "batch_run_duration_seconds",
		Help: "Baseline/limit batch reconciliation run duration", Buckets: defaultDurationBuckets,
	}, []string{"kind"})
	reg.MustRegister(m.BatchRunDuration)

	m.ProdConsRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ozone", Name: "prodcons_rows",
		Help: "Number of persisted ProdCons rows",
	})
	reg.MustRegister(m.ProdConsRows)

	return m
}

// Handler exposes the registry for the embedding process to serve.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
