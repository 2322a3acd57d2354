package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Operation ids from hived's operation variant.
const (
	opCustomJSON         = 18
	opClaimRewardBalance = 39
)

// Operation is a ledger operation that can be serialized for signing.
type Operation interface {
	OpName() string
	OpID() uint64
	encode(enc *Encoder) error
}

// ClaimRewardBalance moves pending author/curation rewards into the
// account's balances. When broadcast by another account, that account must
// hold posting authority over Account.
type ClaimRewardBalance struct {
	Account     string `json:"account"`
	RewardHive  Asset  `json:"reward_hive"`
	RewardHBD   Asset  `json:"reward_hbd"`
	RewardVests Asset  `json:"reward_vests"`
}

func (op *ClaimRewardBalance) OpName() string { return "claim_reward_balance" }
func (op *ClaimRewardBalance) OpID() uint64   { return opClaimRewardBalance }

func (op *ClaimRewardBalance) encode(enc *Encoder) error {
	enc.String(op.Account)
	for _, a := range []Asset{op.RewardHive, op.RewardHBD, op.RewardVests} {
		if err := a.encode(enc); err != nil {
			return err
		}
	}
	return nil
}

// CustomJSON carries an application payload; sidechains such as Hive-Engine
// read these from the ledger.
type CustomJSON struct {
	RequiredAuths        []string `json:"required_auths"`
	RequiredPostingAuths []string `json:"required_posting_auths"`
	ID                   string   `json:"id"`
	JSON                 string   `json:"json"`
}

// NewCustomJSON marshals payload and sorts the authority sets, which hived
// stores as ordered sets.
func NewCustomJSON(id string, payload any, requiredAuths, requiredPostingAuths []string) (*CustomJSON, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal custom_json payload: %w", err)
	}
	return &CustomJSON{
		RequiredAuths:        sortedCopy(requiredAuths),
		RequiredPostingAuths: sortedCopy(requiredPostingAuths),
		ID:                   id,
		JSON:                 string(body),
	}, nil
}

func (op *CustomJSON) OpName() string { return "custom_json" }
func (op *CustomJSON) OpID() uint64   { return opCustomJSON }

func (op *CustomJSON) encode(enc *Encoder) error {
	enc.Strings(op.RequiredAuths)
	enc.Strings(op.RequiredPostingAuths)
	enc.String(op.ID)
	enc.String(op.JSON)
	return nil
}

func sortedCopy(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}

// Operations marshals in the condenser_api form: [["name", {...}], ...].
type Operations []Operation

func (ops Operations) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, 0, len(ops))
	for _, op := range ops {
		pairs = append(pairs, [2]any{op.OpName(), op})
	}
	return json.Marshal(pairs)
}
