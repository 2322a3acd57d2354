package claim

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/thecrazygm/claim-rewards/hive/pkg/client"
	"github.com/thecrazygm/claim-rewards/hive/pkg/protocol"
	"github.com/thecrazygm/claim-rewards/scot/pkg/scot"
)

type fakeChain struct {
	mu        sync.Mutex
	accounts  map[string]*client.Account
	loadErr   map[string]error
	claimErr  map[string]error
	claims    []string
	customOps []customOp
}

type customOp struct {
	id           string
	payload      any
	postingAuths []string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		accounts: map[string]*client.Account{},
		loadErr:  map[string]error{},
		claimErr: map[string]error{},
	}
}

func asset(t string) *protocol.Asset {
	a, err := protocol.ParseAsset(t)
	if err != nil {
		panic(err)
	}
	return &a
}

func (f *fakeChain) addAccount(name, hive, hbd, vests string) {
	acct := &client.Account{Name: name, Raw: []byte(`{"name":"` + name + `"}`)}
	if hive != "" {
		acct.RewardHive = asset(hive)
	}
	if hbd != "" {
		acct.RewardHBD = asset(hbd)
	}
	if vests != "" {
		acct.RewardVests = asset(vests)
	}
	f.accounts[name] = acct
}

func (f *fakeChain) LoadAccount(_ context.Context, name string) (*client.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadErr[name]; err != nil {
		return nil, err
	}
	acct, ok := f.accounts[name]
	if !ok {
		return nil, client.ErrAccountNotFound
	}
	return acct, nil
}

func (f *fakeChain) ClaimRewardBalance(_ context.Context, authority, target *client.Account) (*client.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = append(f.claims, authority.Name+">"+target.Name)
	if err := f.claimErr[target.Name]; err != nil {
		return nil, err
	}
	return &client.Receipt{TxID: "tx-" + target.Name, BlockNum: 1}, nil
}

func (f *fakeChain) BroadcastCustomJSON(_ context.Context, id string, payload any, postingAuths []string) (*client.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customOps = append(f.customOps, customOp{id: id, payload: payload, postingAuths: postingAuths})
	if err := f.claimErr["*"]; err != nil {
		return nil, err
	}
	return &client.Receipt{TxID: "tx", BlockNum: 2}, nil
}

func (f *fakeChain) broadcasts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claims) + len(f.customOps)
}

type fakeSource struct {
	rewards map[string][]scot.TokenReward
	err     map[string]error
	calls   []string
}

func (s *fakeSource) PendingRewards(_ context.Context, account string) ([]scot.TokenReward, error) {
	s.calls = append(s.calls, account)
	if err := s.err[account]; err != nil {
		return nil, err
	}
	if s.err["*"] != nil {
		return nil, s.err["*"]
	}
	return s.rewards[account], nil
}

func token(symbol string, raw int64, precision int32) scot.TokenReward {
	r := decimal.NewFromInt(raw)
	return scot.TokenReward{
		Symbol:     symbol,
		Pending:    scot.FormatTokenAmount(r.Shift(-precision), precision),
		Staked:     "0",
		Precision:  precision,
		RawPending: r,
	}
}

var errBoom = errors.New("boom")
