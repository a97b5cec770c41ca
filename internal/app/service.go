package app

import (
	"context"

	"transwise/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from the numbering core. Implementations must contain
// no printing and no display logic of any kind.
type ApplicationService interface {
	// ResolveFinancialYear returns the financial-year label for a YYYY-MM-DD date
	// (empty means today).
	ResolveFinancialYear(ctx context.Context, date string) (*FinancialYearResult, error)

	// AllocateLRNumber reserves the next LR number of a branch. An empty
	// FinancialYear is resolved from today's date.
	AllocateLRNumber(ctx context.Context, req AllocateRequest) (*AllocationResult, error)

	// GetCurrentSerial returns the last allocated serial of a scope. The value may
	// be stale by the time the caller sees it.
	GetCurrentSerial(ctx context.Context, scope core.ScopeKey) (*CounterResult, error)

	// CheckLRNumber runs the advisory uniqueness check for a manually entered number.
	CheckLRNumber(ctx context.Context, companyCode, number string) (*UniquenessResult, error)

	// CreateBooking books an LR, allocating its number unless a manual one is given.
	CreateBooking(ctx context.Context, req core.CreateBookingRequest) (*BookingResult, error)

	// GetBooking looks a booking up by LR number within a company.
	GetBooking(ctx context.Context, companyCode, lrNumber string) (*BookingResult, error)

	// ListBookings returns bookings newest first.
	ListBookings(ctx context.Context, filter core.BookingFilter) (*BookingListResult, error)

	// ListCounters returns every counter held by the counter store, optionally
	// restricted to one company.
	ListCounters(ctx context.Context, companyCode string) (*CounterListResult, error)

	// AuditCounters reports scopes of a company whose counter is behind an LR
	// number already present in bookings. It never modifies a counter.
	AuditCounters(ctx context.Context, companyCode string) (*AuditResult, error)

	// BookingSchema returns the JSON Schema of CreateBookingRequest.
	BookingSchema() any
}
