package claim

import (
	"context"
	"log/slog"

	"github.com/thecrazygm/claim-rewards/hive/pkg/client"
	"github.com/thecrazygm/claim-rewards/scot/pkg/scot"
)

// RewardSource reports pending sidechain token rewards.
type RewardSource interface {
	PendingRewards(ctx context.Context, account string) ([]scot.TokenReward, error)
}

// Broadcaster signs and broadcasts custom_json operations.
type Broadcaster interface {
	BroadcastCustomJSON(ctx context.Context, id string, payload any, postingAuths []string) (*client.Receipt, error)
}

// ScotVariant claims Hive-Engine SCOT token rewards with a scot_claim_token
// custom_json signed by the authority.
type ScotVariant struct {
	log    *slog.Logger
	source RewardSource
	chain  Broadcaster
}

func NewScotVariant(log *slog.Logger, source RewardSource, chain Broadcaster) *ScotVariant {
	return &ScotVariant{log: log, source: source, chain: chain}
}

func (v *ScotVariant) Name() string { return "scot" }

// Prepare is a no-op: the sidechain has no authority lookup.
func (v *ScotVariant) Prepare(context.Context, string) error { return nil }

func (v *ScotVariant) Fetch(ctx context.Context, account string) (Snapshot, error) {
	rewards, err := v.source.PendingRewards(ctx, account)
	if err != nil {
		return Snapshot{}, &Error{Kind: KindFetchFailed, Account: account, Err: err}
	}
	snap := Snapshot{Balances: make([]Balance, 0, len(rewards))}
	for _, r := range rewards {
		v.log.Debug("claim/scot: pending token", "account", account, "symbol", r.Symbol, "pending", r.Pending, "staked", r.Staked)
		snap.Balances = append(snap.Balances, Balance{
			Denom:   r.Symbol,
			Amount:  r.PendingAmount(),
			Display: r.Pending,
		})
	}
	return snap, nil
}

type tokenClaim struct {
	Symbol string `json:"symbol"`
}

func (v *ScotVariant) Claim(ctx context.Context, authority, account string, snap Snapshot) (*client.Receipt, error) {
	payload := make([]tokenClaim, 0, len(snap.Balances))
	for _, b := range snap.Balances {
		if b.Amount.IsPositive() {
			payload = append(payload, tokenClaim{Symbol: b.Denom})
		}
	}
	v.log.Debug("claim/scot: broadcasting claim", "account", account, "authority", authority, "tokens", len(payload))
	receipt, err := v.chain.BroadcastCustomJSON(ctx, scot.ClaimOperationID, payload, []string{authority})
	if err != nil {
		return nil, &Error{Kind: KindBroadcastFailed, Account: account, Err: err}
	}
	return receipt, nil
}
