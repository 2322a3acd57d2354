package scot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecrazygm/claim-rewards/utils/pkg/retry"
	claimtesting "github.com/thecrazygm/claim-rewards/utils/pkg/testing"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Logger:    claimtesting.NewLogger(),
		BaseURL:   baseURL,
		RateLimit: 1000,
	})
	require.NoError(t, err)
	return c
}

func TestClaim_Scot_FormatTokenAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount    string
		precision int32
		want      string
	}{
		{amount: "1.2300", precision: 4, want: "1.23"},
		{amount: "5", precision: 0, want: "5"},
		{amount: "5.9", precision: 0, want: "5"},
		{amount: "1.5", precision: 3, want: "1.5"},
		{amount: "2", precision: 3, want: "2"},
		{amount: "0", precision: 8, want: "0"},
		{amount: "0.00000001", precision: 8, want: "0.00000001"},
		{amount: "120.000", precision: 3, want: "120"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			t.Parallel()
			got := FormatTokenAmount(decimal.RequireFromString(tt.amount), tt.precision)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClaim_Scot_PendingRewards(t *testing.T) {
	t.Parallel()

	requests := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"SYM": {"pending_token": 1500, "staked_tokens": 2000, "precision": 3},
			"LEO": {"pending_token": 7, "staked_tokens": 0, "precision": 0},
			"ZERO": {"pending_token": 0, "staked_tokens": 50000, "precision": 3}
		}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL+"/")
	rewards, err := c.PendingRewards(context.Background(), "alice")
	require.NoError(t, err)
	req := <-requests
	assert.Equal(t, "/@alice", req.URL.Path)
	assert.Equal(t, "hive=1", req.URL.RawQuery)

	require.Len(t, rewards, 2)
	assert.Equal(t, "LEO", rewards[0].Symbol)
	assert.Equal(t, "7", rewards[0].Pending)

	sym := rewards[1]
	assert.Equal(t, "SYM", sym.Symbol)
	assert.Equal(t, "1.5", sym.Pending)
	assert.Equal(t, "2", sym.Staked)
	assert.Equal(t, int32(3), sym.Precision)
	assert.True(t, decimal.NewFromInt(1500).Equal(sym.RawPending))
	assert.True(t, decimal.RequireFromString("1.5").Equal(sym.PendingAmount()))
}

func TestClaim_Scot_PendingRewards_Empty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	rewards, err := newTestClient(t, srv.URL).PendingRewards(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, rewards)
}

func TestClaim_Scot_PendingRewards_ErrorsAreReturned(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(t, srv.URL).PendingRewards(context.Background(), "ghost")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode())
	assert.Equal(t, int32(1), hits.Load(), "4xx is not retried")
}

func TestClaim_Scot_PendingRewards_SingleRequestByDefault(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(t, srv.URL).PendingRewards(context.Background(), "alice")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode())
	assert.NotContains(t, err.Error(), "attempts")
	assert.Equal(t, int32(1), hits.Load())
}

func TestClaim_Scot_PendingRewards_OptInRetry(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"SYM": {"pending_token": 1, "staked_tokens": 0, "precision": 2}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		Logger:    claimtesting.NewLogger(),
		BaseURL:   srv.URL,
		RateLimit: 1000,
		Retry:     retry.Config{MaxAttempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	})
	require.NoError(t, err)

	rewards, err := c.PendingRewards(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, "0.01", rewards[0].Pending)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClaim_Scot_PendingRewards_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(t, srv.URL).PendingRewards(context.Background(), "alice")
	assert.Error(t, err)
}

func TestClaim_Scot_Config_Validate(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	assert.Error(t, err)
	_, err = NewClient(Config{Logger: claimtesting.NewLogger(), BaseURL: "ftp://x"})
	assert.Error(t, err)

	c, err := NewClient(Config{Logger: claimtesting.NewLogger()})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}
