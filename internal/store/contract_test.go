package store

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"transwise/internal/core"
)

// Shared behaviour every backend must show. Each backend test calls these
// with a fresh, empty store.

func testScope(branch string) core.ScopeKey {
	return core.ScopeKey{CompanyCode: "CONAG", BranchCode: branch, FinancialYear: "2024-25"}
}

func increment(current int64) (int64, error) { return current + 1, nil }

func runCounterContract(t *testing.T, s core.CounterStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing counter reads as zero", func(t *testing.T) {
		v, err := s.Get(ctx, testScope("EMPTY"))
		require.NoError(t, err)
		assert.Zero(t, v)
	})

	t.Run("update sees current and commits next", func(t *testing.T) {
		scope := testScope("SEQ")
		for want := int64(1); want <= 3; want++ {
			got, err := s.Update(ctx, scope, increment)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		v, err := s.Get(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, int64(3), v)
	})

	t.Run("fn error writes nothing", func(t *testing.T) {
		scope := testScope("ABORT")
		_, err := s.Update(ctx, scope, increment)
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = s.Update(ctx, scope, func(int64) (int64, error) { return 0, boom })
		assert.True(t, errors.Is(err, boom))

		v, err := s.Get(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})

	t.Run("concurrent updates are serialised", func(t *testing.T) {
		const n = 40
		scope := testScope("RACE")
		seen := make([]int64, n)
		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				v, err := s.Update(ctx, scope, increment)
				seen[i] = v
				return err
			})
		}
		require.NoError(t, g.Wait())

		set := make(map[int64]bool, n)
		for _, v := range seen {
			set[v] = true
		}
		assert.Len(t, set, n)
		for i := int64(1); i <= n; i++ {
			assert.True(t, set[i], "missing %d", i)
		}
	})

	if l, ok := s.(core.CounterLister); ok {
		t.Run("list", func(t *testing.T) {
			counters, err := l.List(ctx)
			require.NoError(t, err)
			byScope := map[string]int64{}
			for _, c := range counters {
				byScope[c.Scope.String()] = c.CurrentSerial
			}
			assert.Equal(t, int64(3), byScope[testScope("SEQ").String()])
			assert.Equal(t, int64(40), byScope[testScope("RACE").String()])
			_, hasEmpty := byScope[testScope("EMPTY").String()]
			assert.False(t, hasEmpty, "reads must not create counters")
		})
	}
}

func testBooking(company, branch, number string, created time.Time) *core.Booking {
	return &core.Booking{
		ID:            uuid.NewString(),
		CompanyCode:   company,
		BranchCode:    branch,
		FinancialYear: "2024-25",
		LRNumber:      number,
		BookingDate:   time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		Consignor:     "Acme Steel",
		Consignee:     "Bharat Traders",
		FromLocation:  "Pune",
		ToLocation:    "Bengaluru",
		Packages:      3,
		Weight:        decimal.RequireFromString("120.5"),
		Freight:       decimal.RequireFromString("999.99"),
		PaymentMode:   core.PaymentModePaid,
		CreatedAt:     created,
	}
}

func runBookingContract(t *testing.T, s core.BookingStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

	first := testBooking("CONAG", "HO", "CONAG/HO/2024-25/0001", base)
	second := testBooking("CONAG", "BLR", "CONAG/BLR/2024-25/0001", base.Add(time.Second))
	other := testBooking("OTHER", "HO", "CONAG/HO/2024-25/0001", base.Add(2*time.Second))
	for _, b := range []*core.Booking{first, second, other} {
		require.NoError(t, s.Insert(ctx, b))
	}

	t.Run("count is scoped by company", func(t *testing.T) {
		n, err := s.CountByLRNumber(ctx, "CONAG", "CONAG/HO/2024-25/0001")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = s.CountByLRNumber(ctx, "CONAG", "CONAG/HO/2024-25/0002")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("get by lr number", func(t *testing.T) {
		b, err := s.GetByLRNumber(ctx, "CONAG", "CONAG/BLR/2024-25/0001")
		require.NoError(t, err)
		assert.Equal(t, second.ID, b.ID)
		assert.Equal(t, "BLR", b.BranchCode)
		assert.True(t, second.Freight.Equal(b.Freight))
		assert.True(t, second.Weight.Equal(b.Weight))
		assert.True(t, second.CreatedAt.Equal(b.CreatedAt))
		assert.Equal(t, "2024-06-01", b.BookingDate.Format("2006-01-02"))

		_, err = s.GetByLRNumber(ctx, "CONAG", "nope")
		assert.True(t, errors.Is(err, core.ErrBookingNotFound))
	})

	t.Run("list newest first with filters", func(t *testing.T) {
		all, err := s.List(ctx, core.BookingFilter{CompanyCode: "CONAG"})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, first.ID, all[1].ID)

		ho, err := s.List(ctx, core.BookingFilter{CompanyCode: "CONAG", BranchCode: "HO", FinancialYear: "2024-25"})
		require.NoError(t, err)
		require.Len(t, ho, 1)
		assert.Equal(t, first.ID, ho[0].ID)

		limited, err := s.List(ctx, core.BookingFilter{CompanyCode: "CONAG", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("duplicate numbers are not rejected", func(t *testing.T) {
		dup := testBooking("CONAG", "HO", "CONAG/HO/2024-25/0001", base.Add(3*time.Second))
		require.NoError(t, s.Insert(ctx, dup))
		n, err := s.CountByLRNumber(ctx, "CONAG", "CONAG/HO/2024-25/0001")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		b, err := s.GetByLRNumber(ctx, "CONAG", "CONAG/HO/2024-25/0001")
		require.NoError(t, err)
		assert.Equal(t, dup.ID, b.ID, "newest match wins")
	})
}
