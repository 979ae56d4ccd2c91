package broker

import (
	"errors"
	"fmt"
)

// Sentinel errors for faults the loop cannot recover from by retrying.
var (
	// ErrAuth means the venue rejected our credentials. Fatal: the
	// session token must be renewed by an operator.
	ErrAuth = errors.New("broker: authentication failed")

	// ErrUnknownInstrument means the venue does not recognize the
	// requested contract. Fatal for the current cycle.
	ErrUnknownInstrument = errors.New("broker: unknown instrument")
)

// TransientError wraps a fault worth retrying: timeouts, connection
// resets, venue 5xx responses, rate limiting.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("broker: transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient marks err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RejectedError means the venue accepted the request but refused the
// order: insufficient margin, circuit limits, a closed instrument.
// Not retryable; the loop abandons the attempt and resumes scanning.
type RejectedError struct {
	OrderID string
	Reason  string
}

func (e *RejectedError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("broker: order rejected: %s", e.Reason)
	}
	return fmt.Sprintf("broker: order %s rejected: %s", e.OrderID, e.Reason)
}

// IsRejected reports whether err is an order rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
