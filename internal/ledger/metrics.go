package ledger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Processed balance mutations partitioned by category and result.",
		},
		[]string{"category", "result"},
	)
	mutationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "mutation_duration_seconds",
			Help:      "Time spent inside the locked read-modify-write of a mutation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"category"},
	)
	publishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "event_publish_failures_total",
			Help:      "Committed entries whose domain event could not be published.",
		},
	)
	withdrawalTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "withdrawal_transitions_total",
			Help:      "Withdrawal status transitions partitioned by target status and result.",
		},
		[]string{"status", "result"},
	)
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrInsufficientWithdrawable):
		return "insufficient"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	}
	return "rejected"
}
