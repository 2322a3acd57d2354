package claim

import (
	"github.com/shopspring/decimal"

	"github.com/thecrazygm/claim-rewards/hive/pkg/client"
)

// Outcome is the per-account result of a run.
type Outcome string

const (
	OutcomeClaimed            Outcome = "claimed"
	OutcomeNothingToClaim     Outcome = "nothing-to-claim"
	OutcomeSkippedMissingData Outcome = "skipped-missing-data"
	OutcomeFailed             Outcome = "failed"
)

// Balance is one pending reward. Display is the human readable amount.
type Balance struct {
	Denom   string
	Amount  decimal.Decimal
	Display string
}

// Snapshot is the pending rewards of one account at fetch time.
type Snapshot struct {
	Balances    []Balance
	MissingData bool

	// target is the account the native variant loaded during Fetch.
	target *client.Account
}

// Claimable reports whether at least one balance is positive.
func (s Snapshot) Claimable() bool {
	for _, b := range s.Balances {
		if b.Amount.IsPositive() {
			return true
		}
	}
	return false
}

// Result records what happened to one account.
type Result struct {
	Account   string
	Outcome   Outcome
	Simulated bool
	Snapshot  Snapshot
	Receipt   *client.Receipt
	Err       *Error
}

// Summary aggregates a run. Claimed includes simulated claims.
type Summary struct {
	Total          int
	Claimed        int
	Simulated      int
	NothingToClaim int
	Skipped        int
	Failed         int
	Results        []Result
}

func (s *Summary) record(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeClaimed:
		s.Claimed++
		if r.Simulated {
			s.Simulated++
		}
	case OutcomeNothingToClaim:
		s.NothingToClaim++
	case OutcomeSkippedMissingData:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}
