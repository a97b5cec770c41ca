package core

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// UniquenessValidator checks manually entered LR numbers against persisted bookings.
//
// The check is advisory: two clerks entering the same number at the same time can
// both see "unique". Machine-allocated numbers get their guarantee from the counter.
// The lookup is scoped by company only, not by branch or financial year.
type UniquenessValidator interface {
	IsDocumentNumberUnique(ctx context.Context, companyCode, manualNumber string) (bool, error)
}

type uniquenessValidator struct {
	bookings BookingStore
}

func NewUniquenessValidator(bookings BookingStore) UniquenessValidator {
	return &uniquenessValidator{bookings: bookings}
}

// IsDocumentNumberUnique reports true iff no booking of companyCode carries manualNumber.
// Store failures come back as ErrQueryFailed, never as false.
func (v *uniquenessValidator) IsDocumentNumberUnique(ctx context.Context, companyCode, manualNumber string) (bool, error) {
	companyCode = CanonicalCode(companyCode)
	manualNumber = strings.TrimSpace(manualNumber)
	if companyCode == "" {
		return false, errors.Wrap(ErrInvalidScope, "company code is required")
	}
	if manualNumber == "" {
		return false, errors.Wrap(ErrInvalidBooking, "lr number is required")
	}

	n, err := v.bookings.CountByLRNumber(ctx, companyCode, manualNumber)
	if err != nil {
		return false, WithKind(ErrQueryFailed, err, "check lr number %q", manualNumber)
	}
	return n == 0, nil
}
