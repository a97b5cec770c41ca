package core

import "context"

// UpdateFunc computes the next counter value from the current one (0 when absent).
// Returning an error aborts the transaction without writing.
type UpdateFunc func(current int64) (int64, error)

// CounterStore is the transactional store holding one counter per scope.
// Implementations live in internal/store.
type CounterStore interface {
	// Get is a point read outside any transaction. The value may already be stale.
	Get(ctx context.Context, scope ScopeKey) (int64, error)

	// Update runs fn as a single atomic read-modify-write on the scope's counter
	// and returns the committed value. Concurrent updates of the same scope are
	// serialised; different scopes must not block each other. On any error
	// nothing is written.
	Update(ctx context.Context, scope ScopeKey, fn UpdateFunc) (int64, error)
}

// BookingStore holds finalized bookings.
type BookingStore interface {
	// CountByLRNumber counts bookings of a company whose LR number equals lrNumber.
	CountByLRNumber(ctx context.Context, companyCode, lrNumber string) (int, error)

	Insert(ctx context.Context, b *Booking) error

	// GetByLRNumber returns ErrBookingNotFound when nothing matches.
	GetByLRNumber(ctx context.Context, companyCode, lrNumber string) (*Booking, error)

	// List returns bookings newest first.
	List(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// CounterLister is implemented by every CounterStore backend for audits.
type CounterLister interface {
	List(ctx context.Context) ([]SequenceCounter, error)
}
