package claim

import (
	"context"
	"errors"
	"log/slog"

	"github.com/thecrazygm/claim-rewards/hive/pkg/client"
	"github.com/thecrazygm/claim-rewards/hive/pkg/protocol"
)

// Chain is the ledger access the native variant needs.
type Chain interface {
	LoadAccount(ctx context.Context, name string) (*client.Account, error)
	ClaimRewardBalance(ctx context.Context, authority, target *client.Account) (*client.Receipt, error)
}

// NativeVariant claims HIVE, HBD and VESTS reward balances.
type NativeVariant struct {
	log       *slog.Logger
	chain     Chain
	authority *client.Account
}

func NewNativeVariant(log *slog.Logger, chain Chain) *NativeVariant {
	return &NativeVariant{log: log, chain: chain}
}

func (v *NativeVariant) Name() string { return "native" }

// Prepare resolves the authority account once for the whole run.
func (v *NativeVariant) Prepare(ctx context.Context, authority string) error {
	v.log.Debug("claim/native: loading authority account", "authority", authority)
	acct, err := v.chain.LoadAccount(ctx, authority)
	if err != nil {
		return &Error{Kind: lookupKind(err, KindConnectionFailed), Account: authority, Err: err}
	}
	v.authority = acct
	return nil
}

func (v *NativeVariant) Fetch(ctx context.Context, account string) (Snapshot, error) {
	acct, err := v.chain.LoadAccount(ctx, account)
	if err != nil {
		return Snapshot{}, &Error{Kind: lookupKind(err, KindFetchFailed), Account: account, Err: err}
	}

	snap := Snapshot{target: acct}
	if acct.RewardHive == nil || acct.RewardHBD == nil || acct.RewardVests == nil {
		v.log.Warn("claim/native: one or more reward attributes are missing",
			"account", account,
			"reward_hive", assetString(acct.RewardHive),
			"reward_hbd", assetString(acct.RewardHBD),
			"reward_vests", assetString(acct.RewardVests),
		)
		snap.MissingData = true
		return snap, nil
	}
	for _, a := range []*protocol.Asset{acct.RewardHive, acct.RewardHBD, acct.RewardVests} {
		snap.Balances = append(snap.Balances, Balance{
			Denom:   a.Symbol,
			Amount:  a.Amount,
			Display: a.Amount.StringFixed(a.Precision),
		})
	}
	return snap, nil
}

func (v *NativeVariant) Claim(ctx context.Context, authority, account string, snap Snapshot) (*client.Receipt, error) {
	if v.authority == nil || v.authority.Name != authority {
		return nil, &Error{Kind: KindConnectionFailed, Account: account, Err: errors.New("authority account not prepared")}
	}
	if snap.target == nil {
		return nil, &Error{Kind: KindFetchFailed, Account: account, Err: errors.New("snapshot has no account")}
	}
	receipt, err := v.chain.ClaimRewardBalance(ctx, v.authority, snap.target)
	if err != nil {
		v.log.Debug("claim/native: account json", "account", account, "json", string(snap.target.Raw))
		return nil, &Error{Kind: KindBroadcastFailed, Account: account, Err: err}
	}
	return receipt, nil
}

func lookupKind(err error, otherwise ErrorKind) ErrorKind {
	if errors.Is(err, client.ErrAccountNotFound) {
		return KindAccountNotFound
	}
	return otherwise
}

func assetString(a *protocol.Asset) string {
	if a == nil {
		return "<missing>"
	}
	return a.String()
}
