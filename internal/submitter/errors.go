package submitter

import (
	"errors"
	"fmt"
)

// NetworkError marks a connectivity-tier failure: the RPC endpoint could not
// be reached or timed out. These are retryable by the caller, unlike ledger
// reverts, which are authoritative and must never be retried.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is a connectivity-tier failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// ErrTransactionReverted is returned when a broadcast transaction was mined
// with a failed status. The gas is spent; the effect did not happen.
var ErrTransactionReverted = errors.New("transaction reverted on-chain")
