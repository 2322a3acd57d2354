package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claim_rewards_hive_rpc_requests_total",
			Help: "Total number of Hive JSON-RPC requests",
		},
		[]string{"method", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claim_rewards_hive_rpc_request_duration_seconds",
			Help:    "Duration of Hive JSON-RPC requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 0.05s to ~25s
		},
		[]string{"method"},
	)
)
