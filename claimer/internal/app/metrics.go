package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var BuildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "claim_rewards_build_info",
		Help: "Build information of the claim-rewards binaries",
	},
	[]string{"variant", "version", "commit", "date"},
)
