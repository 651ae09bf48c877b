package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconciliationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "reconciliation",
			Name:      "runs_total",
			Help:      "Reconciliation sweeps by outcome.",
		},
		[]string{"result"},
	)
	reconciliationMismatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wallet",
			Subsystem: "reconciliation",
			Name:      "mismatched_wallets",
			Help:      "Wallets whose balances disagreed with their ledger on the last sweep.",
		},
	)
	reconciliationLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wallet",
			Subsystem: "reconciliation",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last reconciliation sweep finished.",
		},
	)
	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Payment webhook deliveries by outcome.",
		},
		[]string{"result"},
	)
)
