// Package nodes picks the Hive API nodes a run talks to.
package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thecrazygm/claim-rewards/hive/pkg/rpc"
	"github.com/thecrazygm/claim-rewards/utils/pkg/retry"
)

// Default is the public node list used when none is configured.
var Default = []string{
	"https://api.hive.blog",
	"https://api.deathwing.me",
	"https://api.openhive.network",
	"https://anyx.io",
	"https://rpc.mahdiyari.info",
	"https://techcoderx.com",
	"https://hive-api.arcange.eu",
}

const (
	defaultProbeTimeout   = 5 * time.Second
	defaultMaxConcurrency = 8
)

var ErrNoHealthyNodes = errors.New("no healthy hive nodes")

type RankConfig struct {
	Logger         *slog.Logger
	Nodes          []string
	ProbeTimeout   time.Duration
	MaxConcurrency int
}

func (cfg *RankConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Nodes) == 0 {
		return errors.New("at least one node is required")
	}
	if cfg.ProbeTimeout < 0 {
		return errors.New("probe timeout must not be negative")
	}
	return nil
}

// Probe is the result of checking one node.
type Probe struct {
	Node      string
	Latency   time.Duration
	HeadBlock uint32
	Err       error
}

// Rank probes every node concurrently with get_dynamic_global_properties and
// returns the healthy ones, fastest first.
func Rank(ctx context.Context, cfg RankConfig) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}

	probes := make([]Probe, len(cfg.Nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)
	for i, node := range cfg.Nodes {
		g.Go(func() error {
			probes[i] = probe(gctx, cfg, node)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	healthy := make([]Probe, 0, len(probes))
	for _, p := range probes {
		if p.Err != nil {
			cfg.Logger.Debug("hive/nodes: dropping node", "node", p.Node, "error", p.Err)
			continue
		}
		healthy = append(healthy, p)
	}
	if len(healthy) == 0 {
		return nil, fmt.Errorf("%w: probed %d", ErrNoHealthyNodes, len(probes))
	}
	sort.SliceStable(healthy, func(i, j int) bool {
		return healthy[i].Latency < healthy[j].Latency
	})

	ranked := make([]string, len(healthy))
	for i, p := range healthy {
		ranked[i] = p.Node
	}
	cfg.Logger.Debug("hive/nodes: ranked nodes", "healthy", len(ranked), "probed", len(probes), "fastest", ranked[0])
	return ranked, nil
}

func probe(ctx context.Context, cfg RankConfig, node string) Probe {
	p := Probe{Node: node}
	c, err := rpc.New(rpc.Config{
		Logger:  cfg.Logger,
		Nodes:   []string{node},
		Timeout: cfg.ProbeTimeout,
		Retry:   retry.Config{MaxAttempts: 1},
	})
	if err != nil {
		p.Err = err
		return p
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	var props struct {
		HeadBlockNumber uint32 `json:"head_block_number"`
	}
	start := time.Now()
	if err := c.Call(ctx, "condenser_api.get_dynamic_global_properties", nil, &props); err != nil {
		p.Err = err
		return p
	}
	p.Latency = time.Since(start)
	p.HeadBlock = props.HeadBlockNumber
	if p.HeadBlock == 0 {
		p.Err = errors.New("node reported head block 0")
	}
	return p
}
