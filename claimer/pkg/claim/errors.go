package claim

import (
	"errors"
	"fmt"
)

var ErrNoAccounts = errors.New("account list is empty")

// ErrorKind classifies per-account and connection failures.
type ErrorKind int

const (
	KindConnectionFailed ErrorKind = iota + 1
	KindAccountNotFound
	KindFetchFailed
	KindBroadcastFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectionFailed:
		return "connection_failed"
	case KindAccountNotFound:
		return "account_not_found"
	case KindFetchFailed:
		return "fetch_failed"
	case KindBroadcastFailed:
		return "broadcast_failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a classified failure for one account.
type Error struct {
	Kind    ErrorKind
	Account string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Account, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify returns err as an *Error, using kind when err carries none.
func classify(account string, kind ErrorKind, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		if ce.Account != "" {
			return ce
		}
		cp := *ce
		cp.Account = account
		return &cp
	}
	return &Error{Kind: kind, Account: account, Err: err}
}
