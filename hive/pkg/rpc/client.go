package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thecrazygm/claim-rewards/utils/pkg/retry"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	Logger *slog.Logger
	// Nodes are API endpoints in preference order. Calls start on the first
	// and move down the list when a node fails.
	Nodes      []string
	Timeout    time.Duration
	HTTPClient *http.Client
	Retry      retry.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Nodes) == 0 {
		return errors.New("at least one node is required")
	}
	for _, n := range cfg.Nodes {
		if !strings.HasPrefix(n, "http://") && !strings.HasPrefix(n, "https://") {
			return fmt.Errorf("node %q must be an http(s) URL", n)
		}
	}
	if cfg.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// Client speaks JSON-RPC 2.0 to a set of interchangeable API nodes.
type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	nodes      []string
	retry      retry.Config

	mu      sync.Mutex
	current int

	nextID atomic.Uint64
}

func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: cfg.Timeout,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   2,
			},
			Timeout: cfg.Timeout,
		}
	}
	nodes := make([]string, len(cfg.Nodes))
	for i, n := range cfg.Nodes {
		nodes[i] = strings.TrimSuffix(n, "/")
	}
	return &Client{
		log:        cfg.Logger,
		httpClient: httpClient,
		nodes:      nodes,
		retry:      cfg.Retry,
	}, nil
}

// Node returns the endpoint the next call will use.
func (c *Client) Node() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodes[c.current]
}

// Nodes returns the configured endpoints in preference order.
func (c *Client) Nodes() []string {
	return append([]string(nil), c.nodes...)
}

func (c *Client) failover(from string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.nodes) < 2 || c.nodes[c.current] != from {
		return
	}
	c.current = (c.current + 1) % len(c.nodes)
	c.log.Warn("hive/rpc: switching node", "from", from, "to", c.nodes[c.current])
}

// Call invokes a read-only method, retrying transient failures and moving
// to the next node after each one.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	cfg := c.retry
	cfg.OnRetry = func(attempt int, err error) {
		c.log.Debug("hive/rpc: retrying call", "method", method, "attempt", attempt, "error", err)
	}
	return retry.Do(ctx, cfg, func(int) error {
		node := c.Node()
		err := c.do(ctx, node, method, params, result)
		if err != nil && retry.IsRetryable(err) {
			c.failover(node)
		}
		return err
	})
}

// CallOnce invokes method exactly once on the current node. Used for
// broadcasts, which must not be replayed blindly.
func (c *Client) CallOnce(ctx context.Context, method string, params, result any) error {
	node := c.Node()
	err := c.do(ctx, node, method, params, result)
	if err != nil && retry.IsRetryable(err) {
		c.failover(node)
	}
	return err
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

func (c *Client) do(ctx context.Context, node, method string, params, result any) (err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		RequestsTotal.WithLabelValues(method, status).Inc()
		RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("hive/rpc: calling", "node", node, "method", method)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", node, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Node: node, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var rpcResp response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", node, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result == nil {
		return nil
	}
	if len(rpcResp.Result) == 0 {
		return fmt.Errorf("empty result from %s for %s", node, method)
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
	}
	return nil
}
