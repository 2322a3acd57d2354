// Package claim runs reward claims for a list of accounts using the posting
// authority of the first one.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/thecrazygm/claim-rewards/hive/pkg/client"
)

// Variant is a kind of reward the orchestrator can claim.
type Variant interface {
	// Name labels logs and metrics.
	Name() string
	// Prepare runs once before any account. An error aborts the run.
	Prepare(ctx context.Context, authority string) error
	Fetch(ctx context.Context, account string) (Snapshot, error)
	Claim(ctx context.Context, authority, account string, snap Snapshot) (*client.Receipt, error)
}

type Config struct {
	Logger  *slog.Logger
	Variant Variant
	DryRun  bool
	Clock   clockwork.Clock
	// OnFailure is called for every failed account, after logging.
	OnFailure func(Result)
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Variant == nil {
		return errors.New("variant is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Orchestrator struct {
	log       *slog.Logger
	variant   Variant
	dryRun    bool
	clock     clockwork.Clock
	onFailure func(Result)
}

func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		log:       cfg.Logger.With("variant", cfg.Variant.Name()),
		variant:   cfg.Variant,
		dryRun:    cfg.DryRun,
		clock:     cfg.Clock,
		onFailure: cfg.OnFailure,
	}, nil
}

// Run processes accounts in order. accounts[0] is the authority. Per-account
// failures are recorded in the summary and never stop the run; the returned
// error is set only when the run could not start or ctx was canceled.
// Cancellation is observed between accounts; the account in flight runs to
// completion.
func (o *Orchestrator) Run(ctx context.Context, accounts []string) (Summary, error) {
	summary := Summary{Total: len(accounts)}
	if len(accounts) == 0 {
		return summary, ErrNoAccounts
	}
	for i, a := range accounts {
		if strings.TrimSpace(a) == "" {
			return summary, fmt.Errorf("account %d is blank", i+1)
		}
	}

	start := o.clock.Now()
	authority := accounts[0]
	o.log.Info("claim: starting run", "accounts", len(accounts), "authority", authority, "dry_run", o.dryRun)

	if err := o.variant.Prepare(ctx, authority); err != nil {
		ce := classify(authority, KindConnectionFailed, err)
		o.log.Error("claim: failed to prepare authority account", "authority", authority, "kind", ce.Kind.String(), "error", ce.Err)
		return summary, ce
	}

	var runErr error
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			o.log.Warn("claim: run interrupted", "processed", len(summary.Results), "total", len(accounts))
			runErr = err
			break
		}
		res := o.process(context.WithoutCancel(ctx), authority, account)
		summary.record(res)
		AccountsTotal.WithLabelValues(o.variant.Name(), string(res.Outcome), strconv.FormatBool(res.Simulated)).Inc()
	}

	elapsed := o.clock.Since(start)
	RunDuration.WithLabelValues(o.variant.Name()).Observe(elapsed.Seconds())
	LastRunTimestamp.WithLabelValues(o.variant.Name()).Set(float64(o.clock.Now().Unix()))

	o.log.Info("claim: run complete",
		"summary", fmt.Sprintf("successfully processed %d out of %d accounts", summary.Claimed, summary.Total),
		"claimed", summary.Claimed,
		"simulated", summary.Simulated,
		"nothing_to_claim", summary.NothingToClaim,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", elapsed.String(),
	)
	return summary, runErr
}

func (o *Orchestrator) process(ctx context.Context, authority, account string) Result {
	res := Result{Account: account}
	log := o.log.With("account", account)
	log.Debug("claim: processing account")

	snap, err := o.variant.Fetch(ctx, account)
	if err != nil {
		return o.fail(res, classify(account, KindFetchFailed, err))
	}
	res.Snapshot = snap

	if snap.MissingData {
		log.Warn("claim: reward data incomplete, skipping")
		res.Outcome = OutcomeSkippedMissingData
		return res
	}
	if !snap.Claimable() {
		log.Info("claim: no rewards to claim")
		res.Outcome = OutcomeNothingToClaim
		return res
	}
	log.Info("claim: rewards to claim", "rewards", describe(snap.Balances))

	if o.dryRun {
		for _, b := range snap.Balances {
			if !b.Amount.IsPositive() {
				continue
			}
			log.Info("claim: dry run, would claim", "amount", b.Display, "denom", b.Denom, "authority", authority)
		}
		res.Outcome = OutcomeClaimed
		res.Simulated = true
		return res
	}

	receipt, err := o.variant.Claim(ctx, authority, account, snap)
	if err != nil {
		return o.fail(res, classify(account, KindBroadcastFailed, err))
	}
	res.Outcome = OutcomeClaimed
	res.Receipt = receipt
	log.Info("claim: rewards claimed", "authority", authority, "tx_id", receipt.TxID, "block_num", receipt.BlockNum)
	return res
}

func (o *Orchestrator) fail(res Result, ce *Error) Result {
	res.Outcome = OutcomeFailed
	res.Err = ce
	o.log.Error("claim: failed to process account",
		"account", res.Account,
		"kind", ce.Kind.String(),
		"error_type", fmt.Sprintf("%T", ce.Err),
		"error", ce.Err,
	)
	FailuresTotal.WithLabelValues(o.variant.Name(), ce.Kind.String()).Inc()
	if o.onFailure != nil {
		o.onFailure(res)
	}
	return res
}

func describe(balances []Balance) string {
	parts := make([]string, 0, len(balances))
	for _, b := range balances {
		parts = append(parts, b.Display+" "+b.Denom)
	}
	return strings.Join(parts, ", ")
}
