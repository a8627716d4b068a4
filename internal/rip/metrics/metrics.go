// Package metrics provides observability for the RIP decision gate.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the RIP module. A nil *Metrics
// is safe to call, so tests and partial wirings can skip registration.
type Metrics struct {
	// Decisions by eligibility outcome.
	Decisions *prometheus.CounterVec

	// Records kept vs dropped during evaluation.
	Records *prometheus.CounterVec

	// Response-cache consultations by result.
	CacheLookups *prometheus.CounterVec

	// Debits refused for insufficient budget.
	BudgetDenials prometheus.Counter

	// Compensating credits that could not be applied after retries.
	RollbackFailures prometheus.Counter

	// Full evaluation latency, ledger round trips included.
	EvaluateLatency prometheus.Histogram
}

// New creates a Metrics instance with all RIP collectors registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_rip_decisions_total",
			Help: "Total RIP gate evaluations by eligibility outcome",
		}, []string{"decision"}),

		Records: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_rip_records_total",
			Help: "Candidate records kept or dropped by the RIP gate",
		}, []string{"outcome"}), // outcome: "kept", "dropped"

		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_rip_cache_lookups_total",
			Help: "Response history consultations by result",
		}, []string{"result"}), // result: "hit", "miss"

		BudgetDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beacon_rip_budget_denials_total",
			Help: "Debits refused because the remaining budget was insufficient",
		}),

		RollbackFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beacon_rip_rollback_failures_total",
			Help: "Compensating credits that exhausted their retries",
		}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "beacon_rip_evaluate_duration_seconds",
			Help:    "Duration of full RIP evaluations including ledger round trips",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementDecision records an eligibility outcome.
func (m *Metrics) IncrementDecision(decision string) {
	if m != nil {
		m.Decisions.WithLabelValues(decision).Inc()
	}
}

// AddRecords records kept/dropped record counts for one evaluation.
func (m *Metrics) AddRecords(outcome string, n int) {
	if m != nil && n > 0 {
		m.Records.WithLabelValues(outcome).Add(float64(n))
	}
}

// IncrementCacheLookup records a response-history hit or miss.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

// IncrementBudgetDenial records a debit refused for insufficient budget.
func (m *Metrics) IncrementBudgetDenial() {
	if m != nil {
		m.BudgetDenials.Inc()
	}
}

// IncrementRollbackFailure records a compensating credit that failed.
func (m *Metrics) IncrementRollbackFailure() {
	if m != nil {
		m.RollbackFailures.Inc()
	}
}

// ObserveEvaluateLatency records the duration of one evaluation.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
