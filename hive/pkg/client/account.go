package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/thecrazygm/claim-rewards/hive/pkg/protocol"
)

var ErrAccountNotFound = errors.New("account not found")

// Authority is a weighted set of keys and accounts allowed to sign for a
// role. Entries are [name-or-key, weight] pairs as returned by the node.
type Authority struct {
	WeightThreshold uint32           `json:"weight_threshold"`
	AccountAuths    []AuthorityEntry `json:"account_auths"`
	KeyAuths        []AuthorityEntry `json:"key_auths"`
}

type AuthorityEntry struct {
	Name   string
	Weight uint16
}

func (e *AuthorityEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("authority entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Name); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.Weight)
}

// Account is the subset of on-chain account state this module uses.
// Reward balances are nil when the node did not report them.
type Account struct {
	Name        string
	RewardHive  *protocol.Asset
	RewardHBD   *protocol.Asset
	RewardVests *protocol.Asset
	Posting     Authority

	// Raw is the node's JSON for the account, kept for debug dumps.
	Raw json.RawMessage
}

type accountJSON struct {
	Name                 string          `json:"name"`
	RewardHiveBalance    *protocol.Asset `json:"reward_hive_balance"`
	RewardHBDBalance     *protocol.Asset `json:"reward_hbd_balance"`
	RewardVestingBalance *protocol.Asset `json:"reward_vesting_balance"`
	Posting              Authority       `json:"posting"`
}

func decodeAccount(raw json.RawMessage) (*Account, error) {
	var a accountJSON
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &Account{
		Name:        a.Name,
		RewardHive:  a.RewardHiveBalance,
		RewardHBD:   a.RewardHBDBalance,
		RewardVests: a.RewardVestingBalance,
		Posting:     a.Posting,
		Raw:         raw,
	}, nil
}

// CanPost reports whether signer may sign posting operations for the
// account, either by key or by delegated account authority.
func (a *Account) CanPost(signer, publicKey string) bool {
	if signer == a.Name {
		return slices.ContainsFunc(a.Posting.KeyAuths, func(e AuthorityEntry) bool {
			return e.Name == publicKey && uint32(e.Weight) >= a.Posting.WeightThreshold
		})
	}
	return slices.ContainsFunc(a.Posting.AccountAuths, func(e AuthorityEntry) bool {
		return e.Name == signer && uint32(e.Weight) >= a.Posting.WeightThreshold
	})
}
