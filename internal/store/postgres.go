package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"transwise/internal/core"
)

// PostgresCounterStore serialises allocations with a row lock on lr_sequences.
type PostgresCounterStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCounterStore(pool *pgxpool.Pool) *PostgresCounterStore {
	return &PostgresCounterStore{pool: pool}
}

func (s *PostgresCounterStore) Get(ctx context.Context, scope core.ScopeKey) (int64, error) {
	var current int64
	err := s.pool.QueryRow(ctx, `
		SELECT current_serial
		FROM lr_sequences
		WHERE company_code = $1 AND branch_code = $2 AND financial_year = $3
	`, scope.CompanyCode, scope.BranchCode, scope.FinancialYear).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to read lr sequence")
	}
	return current, nil
}

// Update locks the scope row (creating it at 0 if absent), applies fn and commits.
// A rolled-back transaction also rolls back the lazily created row.
func (s *PostgresCounterStore) Update(ctx context.Context, scope core.ScopeKey, fn core.UpdateFunc) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO lr_sequences (company_code, branch_code, financial_year, current_serial)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (company_code, branch_code, financial_year) DO NOTHING
	`, scope.CompanyCode, scope.BranchCode, scope.FinancialYear)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create lr sequence")
	}

	var current int64
	err = tx.QueryRow(ctx, `
		SELECT current_serial
		FROM lr_sequences
		WHERE company_code = $1 AND branch_code = $2 AND financial_year = $3
		FOR UPDATE
	`, scope.CompanyCode, scope.BranchCode, scope.FinancialYear).Scan(&current)
	if err != nil {
		return 0, errors.Wrap(err, "failed to lock lr sequence")
	}

	next, err := fn(current)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE lr_sequences
		SET current_serial = $4, updated_at = now()
		WHERE company_code = $1 AND branch_code = $2 AND financial_year = $3
	`, scope.CompanyCode, scope.BranchCode, scope.FinancialYear, next)
	if err != nil {
		return 0, errors.Wrap(err, "failed to update lr sequence")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "failed to commit lr sequence")
	}
	return next, nil
}

// List returns every counter, for audits.
func (s *PostgresCounterStore) List(ctx context.Context) ([]core.SequenceCounter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT company_code, branch_code, financial_year, current_serial, updated_at
		FROM lr_sequences
		ORDER BY company_code, branch_code, financial_year
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list lr sequences")
	}
	defer rows.Close()

	var out []core.SequenceCounter
	for rows.Next() {
		var c core.SequenceCounter
		if err := rows.Scan(&c.Scope.CompanyCode, &c.Scope.BranchCode, &c.Scope.FinancialYear, &c.CurrentSerial, &c.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan lr sequence")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type PostgresBookingStore struct {
	pool *pgxpool.Pool
}

func NewPostgresBookingStore(pool *pgxpool.Pool) *PostgresBookingStore {
	return &PostgresBookingStore{pool: pool}
}

func (s *PostgresBookingStore) CountByLRNumber(ctx context.Context, companyCode, lrNumber string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT count(*) FROM bookings WHERE company_code = $1 AND lr_number = $2",
		companyCode, lrNumber,
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count bookings")
	}
	return n, nil
}

func (s *PostgresBookingStore) Insert(ctx context.Context, b *core.Booking) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bookings (id, company_code, branch_code, financial_year, lr_number, manual_number,
			booking_date, consignor, consignee, from_location, to_location, packages,
			weight, freight, payment_mode, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::numeric, $14::numeric, $15, $16)
	`, b.ID, b.CompanyCode, b.BranchCode, b.FinancialYear, b.LRNumber, b.ManualNumber,
		b.BookingDate, b.Consignor, b.Consignee, b.FromLocation, b.ToLocation, b.Packages,
		b.Weight.String(), b.Freight.String(), string(b.PaymentMode), b.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert booking")
	}
	return nil
}

const bookingColumns = `id::text, company_code, branch_code, financial_year, lr_number, manual_number,
	booking_date, consignor, consignee, from_location, to_location, packages,
	weight::text, freight::text, payment_mode, created_at`

func (s *PostgresBookingStore) GetByLRNumber(ctx context.Context, companyCode, lrNumber string) (*core.Booking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE company_code = $1 AND lr_number = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, companyCode, lrNumber)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(core.ErrBookingNotFound, "%s", lrNumber)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get booking")
	}
	return b, nil
}

func (s *PostgresBookingStore) List(ctx context.Context, filter core.BookingFilter) ([]core.Booking, error) {
	where := []string{"company_code = $1"}
	args := []any{filter.CompanyCode}
	if filter.BranchCode != "" {
		args = append(args, filter.BranchCode)
		where = append(where, fmt.Sprintf("branch_code = $%d", len(args)))
	}
	if filter.FinancialYear != "" {
		args = append(args, filter.FinancialYear)
		where = append(where, fmt.Sprintf("financial_year = $%d", len(args)))
	}
	query := "SELECT " + bookingColumns + " FROM bookings WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bookings")
	}
	defer rows.Close()

	var out []core.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan booking")
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*core.Booking, error) {
	var (
		b               core.Booking
		weight, freight string
		mode            string
	)
	err := row.Scan(&b.ID, &b.CompanyCode, &b.BranchCode, &b.FinancialYear, &b.LRNumber, &b.ManualNumber,
		&b.BookingDate, &b.Consignor, &b.Consignee, &b.FromLocation, &b.ToLocation, &b.Packages,
		&weight, &freight, &mode, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.PaymentMode = core.PaymentMode(mode)
	if b.Weight, err = decimal.NewFromString(weight); err != nil {
		return nil, err
	}
	if b.Freight, err = decimal.NewFromString(freight); err != nil {
		return nil, err
	}
	return &b, nil
}

var (
	_ core.CounterStore = (*PostgresCounterStore)(nil)
	_ core.BookingStore = (*PostgresBookingStore)(nil)
)
