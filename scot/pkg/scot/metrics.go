package scot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claim_rewards_scot_fetches_total",
			Help: "Total number of SCOT reward lookups",
		},
		[]string{"status"},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "claim_rewards_scot_fetch_duration_seconds",
			Help:    "Duration of SCOT API requests",
			Buckets: prometheus.DefBuckets,
		},
	)
)
