package serviceerrs

import (
	"errors"
	"time"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrNoContent            = errors.New("no content")
	ErrUnexpected           = errors.New("unexpected error")
	ErrAgentExists          = errors.New("agent code already registered")
	ErrTransactionCommitted = errors.New("transaction is committed")
	ErrBrokerCodeRequired   = errors.New("broker code required for broker code type")
	ErrStaleLedgerResult    = errors.New("stale ledger result")

	ErrSemaphoreTimeoutExceeded = errors.New("semaphore acquire timeout exceeded")
)

// TooManyRequestsError carries the ledger service's throttling reply:
// how long to back off and the request budget allowed afterwards.
type TooManyRequestsError struct {
	RetryAfter time.Duration
	RPM        uint64
}

func (e *TooManyRequestsError) Error() string {
	return "too many requests"
}
