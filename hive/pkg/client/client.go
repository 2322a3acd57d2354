// Package client is a small Hive chain client: it loads accounts and signs
// and broadcasts the operations used to claim rewards.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/thecrazygm/claim-rewards/hive/pkg/crypto"
	"github.com/thecrazygm/claim-rewards/hive/pkg/nodes"
	"github.com/thecrazygm/claim-rewards/hive/pkg/protocol"
	"github.com/thecrazygm/claim-rewards/hive/pkg/rpc"
)

const defaultExpiration = time.Minute

type Config struct {
	Logger *slog.Logger
	// Nodes are candidate API endpoints. They are ranked on Connect unless
	// SkipRanking is set. Defaults to nodes.Default.
	Nodes       []string
	SkipRanking bool
	PostingKey  string
	ChainID     string
	Expiration  time.Duration
	Timeout     time.Duration
	Clock       clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.PostingKey == "" {
		return errors.New("posting key is required")
	}
	if cfg.Expiration < 0 {
		return errors.New("expiration must not be negative")
	}
	if cfg.Nodes == nil {
		cfg.Nodes = nodes.Default
	}
	if cfg.ChainID == "" {
		cfg.ChainID = protocol.HiveChainID
	}
	if cfg.Expiration == 0 {
		cfg.Expiration = defaultExpiration
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Client struct {
	log     *slog.Logger
	rpc     *rpc.Client
	key     *crypto.PrivateKey
	chainID []byte
	ttl     time.Duration
	clock   clockwork.Clock
}

// Receipt identifies a broadcast transaction.
type Receipt struct {
	TxID     string
	BlockNum uint32
}

// Connect parses the posting key, ranks the candidate nodes and returns a
// client bound to the healthy ones.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key, err := crypto.ParseWIF(cfg.PostingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse posting key: %w", err)
	}
	chainID, err := protocol.ParseChainID(cfg.ChainID)
	if err != nil {
		return nil, err
	}

	endpoints := cfg.Nodes
	if !cfg.SkipRanking {
		cfg.Logger.Debug("hive/client: ranking nodes", "candidates", len(endpoints))
		endpoints, err = nodes.Rank(ctx, nodes.RankConfig{Logger: cfg.Logger, Nodes: cfg.Nodes})
		if err != nil {
			return nil, fmt.Errorf("failed to select hive nodes: %w", err)
		}
	}

	rc, err := rpc.New(rpc.Config{Logger: cfg.Logger, Nodes: endpoints, Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc client: %w", err)
	}

	cfg.Logger.Info("hive/client: connected", "nodes", endpoints, "signer", key.PublicKey())
	return &Client{
		log:     cfg.Logger,
		rpc:     rc,
		key:     key,
		chainID: chainID,
		ttl:     cfg.Expiration,
		clock:   cfg.Clock,
	}, nil
}

// PublicKey returns the public half of the posting key.
func (c *Client) PublicKey() string {
	return c.key.PublicKey()
}

// LoadAccount fetches one account. Returns ErrAccountNotFound when the node
// does not know it.
func (c *Client) LoadAccount(ctx context.Context, name string) (*Account, error) {
	var raw []json.RawMessage
	if err := c.rpc.Call(ctx, "condenser_api.get_accounts", []any{[]string{name}}, &raw); err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	return decodeAccount(raw[0])
}

// ClaimRewardBalance claims every pending reward of target, signed with the
// posting key of authority.
func (c *Client) ClaimRewardBalance(ctx context.Context, authority, target *Account) (*Receipt, error) {
	if !target.CanPost(authority.Name, c.key.PublicKey()) {
		c.log.Warn("hive/client: signer is not listed in posting authority", "account", target.Name, "authority", authority.Name)
	}
	op := &protocol.ClaimRewardBalance{
		Account:     target.Name,
		RewardHive:  orZero(target.RewardHive, protocol.SymbolHIVE),
		RewardHBD:   orZero(target.RewardHBD, protocol.SymbolHBD),
		RewardVests: orZero(target.RewardVests, protocol.SymbolVESTS),
	}
	return c.broadcast(ctx, op)
}

// BroadcastCustomJSON broadcasts a custom_json operation carrying payload.
func (c *Client) BroadcastCustomJSON(ctx context.Context, id string, payload any, postingAuths []string) (*Receipt, error) {
	op, err := protocol.NewCustomJSON(id, payload, nil, postingAuths)
	if err != nil {
		return nil, err
	}
	return c.broadcast(ctx, op)
}

type globalProperties struct {
	HeadBlockNumber uint32 `json:"head_block_number"`
	HeadBlockID     string `json:"head_block_id"`
}

type broadcastResult struct {
	ID       string `json:"id"`
	BlockNum uint32 `json:"block_num"`
	Expired  bool   `json:"expired"`
}

func (c *Client) broadcast(ctx context.Context, ops ...protocol.Operation) (*Receipt, error) {
	var props globalProperties
	if err := c.rpc.Call(ctx, "condenser_api.get_dynamic_global_properties", nil, &props); err != nil {
		return nil, fmt.Errorf("failed to get global properties: %w", err)
	}

	tx, err := protocol.NewTransaction(props.HeadBlockNumber, props.HeadBlockID, c.clock.Now(), c.ttl, ops...)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(c.key, c.chainID); err != nil {
		return nil, err
	}
	txID, err := tx.ID()
	if err != nil {
		return nil, err
	}

	c.log.Debug("hive/client: broadcasting", "tx_id", txID, "op", ops[0].OpName(), "ops", len(ops))
	var res broadcastResult
	if err := c.rpc.CallOnce(ctx, "condenser_api.broadcast_transaction_synchronous", []any{tx}, &res); err != nil {
		return nil, fmt.Errorf("failed to broadcast %s: %w", txID, err)
	}
	if res.Expired {
		return nil, fmt.Errorf("transaction %s expired before inclusion", txID)
	}
	if res.ID != "" && res.ID != txID {
		c.log.Warn("hive/client: node reported a different transaction id", "local", txID, "node", res.ID)
	}
	return &Receipt{TxID: txID, BlockNum: res.BlockNum}, nil
}

func orZero(a *protocol.Asset, symbol string) protocol.Asset {
	if a == nil {
		return protocol.NewAsset(decimal.Zero, symbol)
	}
	return *a
}
