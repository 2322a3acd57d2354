// Package scot reads pending token rewards from the Hive-Engine SCOT index
// service.
package scot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/thecrazygm/claim-rewards/utils/pkg/retry"
)

const (
	DefaultBaseURL = "https://scot-api.hive-engine.com"
	DefaultTimeout = 10 * time.Second

	// ClaimOperationID is the custom_json id the sidechain reads claims from.
	ClaimOperationID = "scot_claim_token"
)

type Config struct {
	Logger     *slog.Logger
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// RateLimit bounds outbound requests. Zero means 5 per second.
	RateLimit rate.Limit
	Burst     int
	// Retry is opt-in. Zero means a single request per fetch.
	Retry     retry.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid SCOT API url %q", cfg.BaseURL)
	}
	if cfg.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

type Client struct {
	log        *slog.Logger
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      retry.Config
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = rate.Limit(5)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Config{MaxAttempts: 1}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		log:        cfg.Logger,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(cfg.RateLimit, cfg.Burst),
		retry:      cfg.Retry,
	}, nil
}

// TokenReward is one token with a pending reward for an account.
type TokenReward struct {
	Symbol     string
	Pending    string
	Staked     string
	Precision  int32
	RawPending decimal.Decimal
}

// PendingAmount returns the pending reward in whole tokens.
func (r TokenReward) PendingAmount() decimal.Decimal {
	return r.RawPending.Shift(-r.Precision)
}

type tokenState struct {
	PendingToken json.Number `json:"pending_token"`
	StakedTokens json.Number `json:"staked_tokens"`
	Precision    int32       `json:"precision"`
}

// StatusError is a non-200 response from the SCOT API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("SCOT API returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

// PendingRewards returns the tokens with a positive pending reward for
// account, ordered by symbol. An account with nothing pending yields an
// empty slice and no error.
func (c *Client) PendingRewards(ctx context.Context, account string) ([]TokenReward, error) {
	var states map[string]tokenState
	err := retry.Do(ctx, c.retry, func(int) error {
		var err error
		states, err = c.fetch(ctx, account)
		return err
	})
	if err != nil {
		FetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch SCOT rewards for %s: %w", account, err)
	}
	FetchesTotal.WithLabelValues("ok").Inc()

	rewards := make([]TokenReward, 0, len(states))
	for symbol, st := range states {
		pending, err := parseRaw(st.PendingToken)
		if err != nil {
			return nil, fmt.Errorf("invalid pending_token for %s: %w", symbol, err)
		}
		if !pending.IsPositive() {
			continue
		}
		staked, err := parseRaw(st.StakedTokens)
		if err != nil {
			return nil, fmt.Errorf("invalid staked_tokens for %s: %w", symbol, err)
		}
		rewards = append(rewards, TokenReward{
			Symbol:     symbol,
			Pending:    FormatTokenAmount(pending.Shift(-st.Precision), st.Precision),
			Staked:     FormatTokenAmount(staked.Shift(-st.Precision), st.Precision),
			Precision:  st.Precision,
			RawPending: pending,
		})
	}
	sort.Slice(rewards, func(i, j int) bool { return rewards[i].Symbol < rewards[j].Symbol })

	c.log.Debug("scot: fetched rewards", "account", account, "tokens", len(states), "pending", len(rewards))
	return rewards, nil
}

func (c *Client) fetch(ctx context.Context, account string) (map[string]tokenState, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + "/@" + url.PathEscape(account) + "?hive=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var states map[string]tokenState
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return states, nil
}

func parseRaw(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}

// FormatTokenAmount renders amount at precision decimal places with
// trailing zeroes removed. Precision 0 renders the integer part only.
func FormatTokenAmount(amount decimal.Decimal, precision int32) string {
	if precision <= 0 {
		return amount.Truncate(0).String()
	}
	s := amount.StringFixed(precision)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}
