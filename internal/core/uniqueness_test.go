package core_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transwise/internal/core"
	"transwise/internal/store"
)

// brokenBookingStore fails every call, like a booking store that cannot be reached.
type brokenBookingStore struct {
	store.MemoryBookingStore
	err error
}

func (s *brokenBookingStore) CountByLRNumber(ctx context.Context, companyCode, lrNumber string) (int, error) {
	return 0, s.err
}

func (s *brokenBookingStore) Insert(ctx context.Context, b *core.Booking) error {
	return s.err
}

func seedBooking(t *testing.T, bookings core.BookingStore, company, branch, fy, number string) {
	t.Helper()
	require.NoError(t, bookings.Insert(context.Background(), &core.Booking{
		ID:            number,
		CompanyCode:   company,
		BranchCode:    branch,
		FinancialYear: fy,
		LRNumber:      number,
		ManualNumber:  true,
		PaymentMode:   core.PaymentModePaid,
	}))
}

func TestIsDocumentNumberUnique(t *testing.T) {
	ctx := context.Background()
	bookings := store.NewMemoryBookingStore()
	seedBooking(t, bookings, "CONAG", "HO", "2024-25", "M-100")
	v := core.NewUniquenessValidator(bookings)

	ok, err := v.IsDocumentNumberUnique(ctx, "CONAG", "M-100")
	require.NoError(t, err)
	assert.False(t, ok, "existing number must not be unique")

	ok, err = v.IsDocumentNumberUnique(ctx, "CONAG", "M-101")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsDocumentNumberUnique_ScopedByCompanyOnly(t *testing.T) {
	ctx := context.Background()
	bookings := store.NewMemoryBookingStore()
	seedBooking(t, bookings, "CONAG", "HO", "2023-24", "M-100")
	v := core.NewUniquenessValidator(bookings)

	// Another branch and another financial year of the same company still collide.
	ok, err := v.IsDocumentNumberUnique(ctx, "CONAG", "M-100")
	require.NoError(t, err)
	assert.False(t, ok)

	// The company code is matched in its canonical form.
	ok, err = v.IsDocumentNumberUnique(ctx, " conag ", "M-100")
	require.NoError(t, err)
	assert.False(t, ok)

	// Another company does not.
	ok, err = v.IsDocumentNumberUnique(ctx, "OTHER", "M-100")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsDocumentNumberUnique_StoreFailureIsNotFalse(t *testing.T) {
	cause := errors.New("connection reset by peer")
	v := core.NewUniquenessValidator(&brokenBookingStore{err: cause})

	ok, err := v.IsDocumentNumberUnique(context.Background(), "CONAG", "M-100")
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, core.ErrQueryFailed))
	assert.True(t, errors.Is(err, cause))
}

func TestIsDocumentNumberUnique_RejectsEmptyInput(t *testing.T) {
	v := core.NewUniquenessValidator(store.NewMemoryBookingStore())

	_, err := v.IsDocumentNumberUnique(context.Background(), "", "M-100")
	assert.True(t, errors.Is(err, core.ErrInvalidScope))

	_, err = v.IsDocumentNumberUnique(context.Background(), "CONAG", " ")
	assert.True(t, errors.Is(err, core.ErrInvalidBooking))
}
