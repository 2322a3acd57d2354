package rpc

import (
	"encoding/json"
	"fmt"
)

// Error is a JSON-RPC error object returned by a node. hived puts the
// assertion text in Message and the full fc exception in Data.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error: %s (code %d)", e.Message, e.Code)
}

// StatusError is a non-200 HTTP response from a node.
// Implements the StatusCode() interface for retry.IsRetryable() detection.
type StatusError struct {
	Node string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("node %s returned status %d: %s", e.Node, e.Code, e.Body)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}
