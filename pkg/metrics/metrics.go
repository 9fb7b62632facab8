package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ReconcilePassDurationSeconds measures the duration of reconciliation passes
	ReconcilePassDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_pass_duration_seconds",
			Help:    "Duration of claim reconciliation passes in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		},
	)

	// ReconcilePassFailuresTotal counts aborted reconciliation passes
	ReconcilePassFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_pass_failures_total",
			Help: "Total number of reconciliation passes that aborted",
		},
	)

	// ClaimOutcomesTotal counts claim terminal transitions by outcome
	ClaimOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claim_outcomes_total",
			Help: "Total number of claim outcomes by result",
		},
		[]string{"outcome"},
	)

	// BatchesStagedTotal counts accepted migration batches
	BatchesStagedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batches_staged_total",
			Help: "Total number of migration batches staged",
		},
	)

	// RowsStagedTotal counts staged claim rows
	RowsStagedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rows_staged_total",
			Help: "Total number of claim rows staged from uploads",
		},
	)
)

// Claim outcome label values.
const (
	OutcomeClaimed   = "claimed"
	OutcomeRejected  = "rejected"
	OutcomeUnmatched = "unmatched"
	OutcomeErrored   = "errored"
)

var registerOnce sync.Once

// Register registers all collectors with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ReconcilePassDurationSeconds,
			ReconcilePassFailuresTotal,
			ClaimOutcomesTotal,
			BatchesStagedTotal,
			RowsStagedTotal,
		)
	})
}

// ObservePass records one pass duration from its start time.
func ObservePass(start time.Time) {
	ReconcilePassDurationSeconds.Observe(time.Since(start).Seconds())
}
