package core

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors surfaced by the numbering core and the booking flow.
// Callers match them with errors.Is, from the standard library or from
// cockroachdb/errors; the underlying cause stays matchable too.
var (
	// ErrInvalidScope is returned before any store access when the company code,
	// branch code or financial-year label cannot form a valid counter scope.
	ErrInvalidScope = errors.New("invalid sequence scope")

	// ErrAllocationFailed means the counter transaction did not commit. The
	// counter is unchanged and no LR number was issued. Retryable.
	ErrAllocationFailed = errors.New("lr number allocation failed")

	// ErrQueryFailed means the booking store could not answer the uniqueness
	// query. It must never be read as "not unique".
	ErrQueryFailed = errors.New("booking store query failed")

	// ErrConflict is returned by optimistic stores when conflict retries are exhausted.
	ErrConflict = errors.New("transaction conflict")

	ErrDuplicateLRNumber = errors.New("lr number already in use")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidBooking    = errors.New("invalid booking")
)

// kindError classifies cause under a sentinel. Both sit in the Unwrap chain.
type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string   { return e.msg + ": " + e.cause.Error() }
func (e *kindError) Unwrap() []error { return []error{e.kind, e.cause} }

// WithKind wraps cause with a message and classifies it as kind, so that
// errors.Is(err, kind) and errors.Is(err, cause) both hold.
func WithKind(kind, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}
