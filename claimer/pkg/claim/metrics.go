package claim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccountsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claim_rewards_accounts_total",
			Help: "Accounts processed by outcome",
		},
		[]string{"variant", "outcome", "simulated"},
	)

	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claim_rewards_failures_total",
			Help: "Per-account failures by kind",
		},
		[]string{"variant", "kind"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claim_rewards_run_duration_seconds",
			Help:    "Duration of a full claim run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		},
		[]string{"variant"},
	)

	LastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "claim_rewards_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
		[]string{"variant"},
	)
)
