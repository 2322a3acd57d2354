package claim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecrazygm/claim-rewards/hive/pkg/client"
	"github.com/thecrazygm/claim-rewards/scot/pkg/scot"
	claimtesting "github.com/thecrazygm/claim-rewards/utils/pkg/testing"
)

func newOrchestrator(t *testing.T, v Variant, dryRun bool) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(Config{
		Logger:  claimtesting.NewLogger(),
		Variant: v,
		DryRun:  dryRun,
		Clock:   clockwork.NewFakeClock(),
	})
	require.NoError(t, err)
	return o
}

func outcomes(s Summary) []Outcome {
	out := make([]Outcome, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, r.Outcome)
	}
	return out
}

func TestClaim_Orchestrator_Config_Validate(t *testing.T) {
	t.Parallel()

	_, err := NewOrchestrator(Config{Variant: &ScotVariant{}})
	assert.Error(t, err)
	_, err = NewOrchestrator(Config{Logger: claimtesting.NewLogger()})
	assert.Error(t, err)
}

func TestClaim_Orchestrator_EmptyAccountList(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	o := newOrchestrator(t, NewNativeVariant(claimtesting.NewLogger(), chain), false)

	_, err := o.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoAccounts)

	_, err = o.Run(context.Background(), []string{"boss", " "})
	assert.Error(t, err)
	assert.Zero(t, chain.broadcasts())
}

func TestClaim_Orchestrator_FailingSourceVisitsEveryAccount(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	source := &fakeSource{err: map[string]error{"*": errBoom}}
	var failures []Result
	o, err := NewOrchestrator(Config{
		Logger:    claimtesting.NewLogger(),
		Variant:   NewScotVariant(claimtesting.NewLogger(), source, chain),
		OnFailure: func(r Result) { failures = append(failures, r) },
	})
	require.NoError(t, err)

	accounts := []string{"boss", "alice", "carol"}
	summary, err := o.Run(context.Background(), accounts)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 0, summary.Claimed)
	assert.Equal(t, 3, summary.Failed)
	assert.Equal(t, accounts, source.calls)
	assert.Zero(t, chain.broadcasts())
	require.Len(t, failures, 3)
	for _, r := range summary.Results {
		require.NotNil(t, r.Err)
		assert.Equal(t, KindFetchFailed, r.Err.Kind)
		assert.ErrorIs(t, r.Err, errBoom)
	}
}

func TestClaim_Orchestrator_NothingToClaimMakesNoBroadcast(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	chain.addAccount("boss", "0.000 HIVE", "0.000 HBD", "0.000000 VESTS")
	chain.addAccount("alice", "0.000 HIVE", "0.000 HBD", "0.000000 VESTS")

	summary, err := newOrchestrator(t, NewNativeVariant(claimtesting.NewLogger(), chain), false).
		Run(context.Background(), []string{"boss", "alice"})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{OutcomeNothingToClaim, OutcomeNothingToClaim}, outcomes(summary))
	assert.Equal(t, 2, summary.NothingToClaim)
	assert.Zero(t, chain.broadcasts())

	source := &fakeSource{rewards: map[string][]scot.TokenReward{}}
	summary, err = newOrchestrator(t, NewScotVariant(claimtesting.NewLogger(), source, chain), false).
		Run(context.Background(), []string{"boss"})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{OutcomeNothingToClaim}, outcomes(summary))
	assert.Zero(t, chain.broadcasts())
}

func TestClaim_Orchestrator_DryRunCountsAsClaimed(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	chain.addAccount("boss", "1.000 HIVE", "0.000 HBD", "0.000000 VESTS")
	chain.addAccount("alice", "0.000 HIVE", "0.000 HBD", "3.000000 VESTS")

	log, buf := claimtesting.NewCaptureLogger()
	o, err := NewOrchestrator(Config{
		Logger:  log,
		Variant: NewNativeVariant(log, chain),
		DryRun:  true,
		Clock:   clockwork.NewFakeClock(),
	})
	require.NoError(t, err)

	summary, err := o.Run(context.Background(), []string{"boss", "alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Claimed)
	assert.Equal(t, 2, summary.Simulated)
	for _, r := range summary.Results {
		assert.True(t, r.Simulated)
		assert.Nil(t, r.Receipt)
	}
	assert.Zero(t, chain.broadcasts())
	assert.Contains(t, buf.String(), `msg="claim: run complete"`)
	assert.Contains(t, buf.String(), `summary="successfully processed 2 out of 2 accounts"`)
	assert.Contains(t, buf.String(), "amount=3.000000 denom=VESTS")
}

func TestClaim_Orchestrator_FailureIsolation(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	chain.addAccount("boss", "0.000 HIVE", "0.000 HBD", "0.000000 VESTS")
	chain.addAccount("alice", "1.000 HIVE", "0.000 HBD", "0.000000 VESTS")
	chain.addAccount("carol", "0.000 HIVE", "0.500 HBD", "0.000000 VESTS")
	chain.claimErr["alice"] = errBoom

	summary, err := newOrchestrator(t, NewNativeVariant(claimtesting.NewLogger(), chain), false).
		Run(context.Background(), []string{"boss", "alice", "ghost", "carol"})
	require.NoError(t, err)

	assert.Equal(t, []Outcome{OutcomeNothingToClaim, OutcomeFailed, OutcomeFailed, OutcomeClaimed}, outcomes(summary))
	assert.Equal(t, KindBroadcastFailed, summary.Results[1].Err.Kind)
	assert.Equal(t, KindAccountNotFound, summary.Results[2].Err.Kind)
	assert.Equal(t, "tx-carol", summary.Results[3].Receipt.TxID)
	assert.Equal(t, []string{"boss>alice", "boss>carol"}, chain.claims)
	assert.Equal(t, 1, summary.Claimed)
	assert.Equal(t, 2, summary.Failed)
}

func TestClaim_Orchestrator_MissingDataIsSkipped(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	chain.addAccount("boss", "0.000 HIVE", "0.000 HBD", "0.000000 VESTS")
	chain.addAccount("alice", "5.000 HIVE", "", "0.000000 VESTS")

	summary, err := newOrchestrator(t, NewNativeVariant(claimtesting.NewLogger(), chain), false).
		Run(context.Background(), []string{"boss", "alice"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedMissingData, summary.Results[1].Outcome)
	assert.Nil(t, summary.Results[1].Err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, chain.broadcasts())
}

func TestClaim_Orchestrator_AuthorityLookupAbortsNativeRun(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	chain.addAccount("alice", "1.000 HIVE", "0.000 HBD", "0.000000 VESTS")

	summary, err := newOrchestrator(t, NewNativeVariant(claimtesting.NewLogger(), chain), false).
		Run(context.Background(), []string{"boss", "alice"})
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindAccountNotFound, ce.Kind)
	assert.Equal(t, "boss", ce.Account)
	assert.ErrorIs(t, err, client.ErrAccountNotFound)
	assert.Empty(t, summary.Results)
	assert.Zero(t, chain.broadcasts())

	chain.addAccount("boss", "0.000 HIVE", "0.000 HBD", "0.000000 VESTS")
	chain.loadErr["boss"] = errBoom
	_, err = newOrchestrator(t, NewNativeVariant(claimtesting.NewLogger(), chain), false).
		Run(context.Background(), []string{"boss", "alice"})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindConnectionFailed, ce.Kind)
}

func TestClaim_Orchestrator_ScotClaimsWithAuthority(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	source := &fakeSource{rewards: map[string][]scot.TokenReward{
		"alice": {token("LEO", 1500, 3), token("POB", 7, 0)},
	}}

	summary, err := newOrchestrator(t, NewScotVariant(claimtesting.NewLogger(), source, chain), false).
		Run(context.Background(), []string{"boss", "alice"})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{OutcomeNothingToClaim, OutcomeClaimed}, outcomes(summary))

	require.Len(t, chain.customOps, 1)
	op := chain.customOps[0]
	assert.Equal(t, "scot_claim_token", op.id)
	assert.Equal(t, []string{"boss"}, op.postingAuths)
	assert.Equal(t, []tokenClaim{{Symbol: "LEO"}, {Symbol: "POB"}}, op.payload)

	snap := summary.Results[1].Snapshot
	require.Len(t, snap.Balances, 2)
	assert.Equal(t, "1.5", snap.Balances[0].Display)
}

func TestClaim_Orchestrator_ScotBroadcastFailure(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	chain.claimErr["*"] = errBoom
	source := &fakeSource{rewards: map[string][]scot.TokenReward{
		"boss":  {token("LEO", 1, 3)},
		"alice": {token("LEO", 2, 3)},
	}}

	summary, err := newOrchestrator(t, NewScotVariant(claimtesting.NewLogger(), source, chain), false).
		Run(context.Background(), []string{"boss", "alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, chain.customOps, 2)
	assert.Equal(t, KindBroadcastFailed, summary.Results[0].Err.Kind)
}

func TestClaim_Orchestrator_CanceledBetweenAccounts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	source := &fakeSource{}
	canceling := &cancelingSource{fakeSource: source, cancel: cancel}

	summary, err := newOrchestrator(t, NewScotVariant(claimtesting.NewLogger(), canceling, newFakeChain()), false).
		Run(ctx, []string{"boss", "alice", "carol"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 3, summary.Total)
	assert.Len(t, summary.Results, 1)
	assert.Equal(t, []string{"boss"}, source.calls)
}

// cancelingSource cancels the run after the first fetch. With checkCtx set
// it cancels before fetching and fails if the fetch context was canceled.
type cancelingSource struct {
	*fakeSource
	cancel   context.CancelFunc
	checkCtx bool
}

func (s *cancelingSource) PendingRewards(ctx context.Context, account string) ([]scot.TokenReward, error) {
	defer s.cancel()
	if s.checkCtx {
		s.cancel()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return s.fakeSource.PendingRewards(ctx, account)
}

func TestClaim_Error(t *testing.T) {
	t.Parallel()

	e := &Error{Kind: KindFetchFailed, Account: "alice", Err: errBoom}
	assert.Equal(t, "alice: fetch_failed: boom", e.Error())
	assert.ErrorIs(t, e, errBoom)

	assert.Equal(t, e, classify("bob", KindBroadcastFailed, e))
	got := classify("bob", KindBroadcastFailed, errBoom)
	assert.Equal(t, KindBroadcastFailed, got.Kind)
	assert.Equal(t, "bob", got.Account)
	assert.Equal(t, "ErrorKind(99)", ErrorKind(99).String())
}

func TestClaim_Orchestrator_ScotDryRun(t *testing.T) {
	t.Parallel()

	chain := newFakeChain()
	source := &fakeSource{rewards: map[string][]scot.TokenReward{
		"boss": {token("ALPHA", 1500, 3), token("BETA", 25, 0)},
	}}
	log, buf := claimtesting.NewCaptureLogger()
	o, err := NewOrchestrator(Config{
		Logger:  log,
		Variant: NewScotVariant(log, source, chain),
		DryRun:  true,
		Clock:   clockwork.NewFakeClock(),
	})
	require.NoError(t, err)

	summary, err := o.Run(context.Background(), []string{"boss"})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	res := summary.Results[0]
	assert.Equal(t, OutcomeClaimed, res.Outcome)
	assert.True(t, res.Simulated)
	assert.Nil(t, res.Receipt)
	assert.Equal(t, 1, summary.Claimed)
	assert.Equal(t, 1, summary.Simulated)
	assert.Empty(t, chain.customOps)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "would claim"))
	assert.Contains(t, out, "amount=1.5 denom=ALPHA")
	assert.Contains(t, out, "amount=25 denom=BETA")
}

func TestClaim_Orchestrator_InFlightAccountFinishesOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	chain := newFakeChain()
	source := &cancelingSource{
		fakeSource: &fakeSource{rewards: map[string][]scot.TokenReward{
			"boss":  {token("SYM", 5, 0)},
			"alice": {token("SYM", 5, 0)},
		}},
		cancel:   cancel,
		checkCtx: true,
	}

	summary, err := newOrchestrator(t, NewScotVariant(claimtesting.NewLogger(), source, chain), false).
		Run(ctx, []string{"boss", "alice"})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, OutcomeClaimed, summary.Results[0].Outcome)
	assert.Nil(t, summary.Results[0].Err)
	assert.Len(t, chain.customOps, 1)
}

func TestClaim_Classify_DoesNotMutateWrappedError(t *testing.T) {
	t.Parallel()

	inner := &Error{Kind: KindAccountNotFound, Err: errBoom}
	got := classify("alice", KindConnectionFailed, fmt.Errorf("lookup: %w", inner))
	assert.Equal(t, "alice", got.Account)
	assert.Equal(t, KindAccountNotFound, got.Kind)
	assert.Empty(t, inner.Account)
}
