package attempt

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationsTotal counts engine operations.
	// Labels: operation (single, bulk), result (ok or a Kind string)
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "retrieval",
		Subsystem: "engine",
		Name:      "mutations_total",
		Help:      "Attempt mutations by operation and result",
	}, []string{"operation", "result"})

	// mutationDuration measures end-to-end operation latency.
	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "retrieval",
		Subsystem: "engine",
		Name:      "mutation_duration_seconds",
		Help:      "Attempt mutation latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation"})

	// auditEntriesTotal counts synthesized audit entries.
	// Labels: field
	auditEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "retrieval",
		Subsystem: "engine",
		Name:      "audit_entries_total",
		Help:      "Audit entries written by field",
	}, []string{"field"})

	// bulkBatchSize tracks how many attempts each bulk edit touches.
	bulkBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "retrieval",
		Subsystem: "engine",
		Name:      "bulk_batch_size",
		Help:      "Attempts per bulk edit",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	})
)

const (
	opSingle = "single"
	opBulk   = "bulk"
)

func observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	mutationsTotal.WithLabelValues(op, result).Inc()
	mutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
