package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"transwise/internal/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS lr_sequences (
	company_code   TEXT    NOT NULL,
	branch_code    TEXT    NOT NULL,
	financial_year TEXT    NOT NULL,
	current_serial INTEGER NOT NULL DEFAULT 0 CHECK (current_serial >= 0),
	updated_at     TEXT    NOT NULL,
	PRIMARY KEY (company_code, branch_code, financial_year)
);

CREATE TABLE IF NOT EXISTS bookings (
	id             TEXT    PRIMARY KEY,
	company_code   TEXT    NOT NULL,
	branch_code    TEXT    NOT NULL,
	financial_year TEXT    NOT NULL,
	lr_number      TEXT    NOT NULL,
	manual_number  INTEGER NOT NULL DEFAULT 0,
	booking_date   TEXT    NOT NULL,
	consignor      TEXT    NOT NULL,
	consignee      TEXT    NOT NULL,
	from_location  TEXT    NOT NULL,
	to_location    TEXT    NOT NULL,
	packages       INTEGER NOT NULL DEFAULT 0,
	weight         TEXT    NOT NULL DEFAULT '0',
	freight        TEXT    NOT NULL DEFAULT '0',
	payment_mode   TEXT    NOT NULL,
	created_at     TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bookings_company_lr ON bookings (company_code, lr_number);
`

// sortableTimeLayout is fixed width so that timestamps sort as text.
const sortableTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// EnsureSQLiteSchema creates the sqlite tables if they do not exist yet.
func EnsureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return errors.Wrap(err, "failed to create sqlite schema")
	}
	return nil
}

// SQLiteCounterStore runs each allocation in a database/sql transaction. Writers
// are serialised by sqlite itself; see db.OpenSQLite for the connection settings.
//
// The handle has a single connection, so allocations for different scopes wait
// on each other too. Scopes stay independent in value, not in latency; use the
// postgres, redis or dynamodb backend where scopes must not contend.
type SQLiteCounterStore struct {
	db *sql.DB
}

func NewSQLiteCounterStore(db *sql.DB) *SQLiteCounterStore {
	return &SQLiteCounterStore{db: db}
}

func (s *SQLiteCounterStore) Get(ctx context.Context, scope core.ScopeKey) (int64, error) {
	var current int64
	err := s.db.QueryRowContext(ctx,
		"SELECT current_serial FROM lr_sequences WHERE company_code = ? AND branch_code = ? AND financial_year = ?",
		scope.CompanyCode, scope.BranchCode, scope.FinancialYear,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to read lr sequence")
	}
	return current, nil
}

func (s *SQLiteCounterStore) Update(ctx context.Context, scope core.ScopeKey, fn core.UpdateFunc) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		"SELECT current_serial FROM lr_sequences WHERE company_code = ? AND branch_code = ? AND financial_year = ?",
		scope.CompanyCode, scope.BranchCode, scope.FinancialYear,
	).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, errors.Wrap(err, "failed to read lr sequence")
	}

	next, err := fn(current)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lr_sequences (company_code, branch_code, financial_year, current_serial, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (company_code, branch_code, financial_year)
		DO UPDATE SET current_serial = excluded.current_serial, updated_at = excluded.updated_at`,
		scope.CompanyCode, scope.BranchCode, scope.FinancialYear, next, time.Now().UTC().Format(sortableTimeLayout),
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to write lr sequence")
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit lr sequence")
	}
	return next, nil
}

func (s *SQLiteCounterStore) List(ctx context.Context) ([]core.SequenceCounter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT company_code, branch_code, financial_year, current_serial, updated_at
		FROM lr_sequences
		ORDER BY company_code, branch_code, financial_year`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list lr sequences")
	}
	defer rows.Close()

	var out []core.SequenceCounter
	for rows.Next() {
		var (
			c       core.SequenceCounter
			updated string
		)
		if err := rows.Scan(&c.Scope.CompanyCode, &c.Scope.BranchCode, &c.Scope.FinancialYear, &c.CurrentSerial, &updated); err != nil {
			return nil, errors.Wrap(err, "failed to scan lr sequence")
		}
		c.UpdatedAt, _ = time.Parse(sortableTimeLayout, updated)
		out = append(out, c)
	}
	return out, rows.Err()
}

type SQLiteBookingStore struct {
	db *sql.DB
}

func NewSQLiteBookingStore(db *sql.DB) *SQLiteBookingStore {
	return &SQLiteBookingStore{db: db}
}

func (s *SQLiteBookingStore) CountByLRNumber(ctx context.Context, companyCode, lrNumber string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM bookings WHERE company_code = ? AND lr_number = ?",
		companyCode, lrNumber,
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count bookings")
	}
	return n, nil
}

func (s *SQLiteBookingStore) Insert(ctx context.Context, b *core.Booking) error {
	manual := 0
	if b.ManualNumber {
		manual = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, company_code, branch_code, financial_year, lr_number, manual_number,
			booking_date, consignor, consignee, from_location, to_location, packages,
			weight, freight, payment_mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.CompanyCode, b.BranchCode, b.FinancialYear, b.LRNumber, manual,
		b.BookingDate.Format("2006-01-02"), b.Consignor, b.Consignee, b.FromLocation, b.ToLocation, b.Packages,
		b.Weight.String(), b.Freight.String(), string(b.PaymentMode), b.CreatedAt.UTC().Format(sortableTimeLayout),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert booking")
	}
	return nil
}

const sqliteBookingColumns = `id, company_code, branch_code, financial_year, lr_number, manual_number,
	booking_date, consignor, consignee, from_location, to_location, packages,
	weight, freight, payment_mode, created_at`

func (s *SQLiteBookingStore) GetByLRNumber(ctx context.Context, companyCode, lrNumber string) (*core.Booking, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sqliteBookingColumns+" FROM bookings WHERE company_code = ? AND lr_number = ? ORDER BY created_at DESC LIMIT 1",
		companyCode, lrNumber)
	b, err := scanSQLiteBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(core.ErrBookingNotFound, "%s", lrNumber)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get booking")
	}
	return b, nil
}

func (s *SQLiteBookingStore) List(ctx context.Context, filter core.BookingFilter) ([]core.Booking, error) {
	where := []string{"company_code = ?"}
	args := []any{filter.CompanyCode}
	if filter.BranchCode != "" {
		where = append(where, "branch_code = ?")
		args = append(args, filter.BranchCode)
	}
	if filter.FinancialYear != "" {
		where = append(where, "financial_year = ?")
		args = append(args, filter.FinancialYear)
	}
	query := "SELECT " + sqliteBookingColumns + " FROM bookings WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bookings")
	}
	defer rows.Close()

	var out []core.Booking
	for rows.Next() {
		b, err := scanSQLiteBooking(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan booking")
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteBooking(row rowScanner) (*core.Booking, error) {
	var (
		b                      core.Booking
		manual                 int
		bookingDate, createdAt string
		weight, freight, mode  string
	)
	err := row.Scan(&b.ID, &b.CompanyCode, &b.BranchCode, &b.FinancialYear, &b.LRNumber, &manual,
		&bookingDate, &b.Consignor, &b.Consignee, &b.FromLocation, &b.ToLocation, &b.Packages,
		&weight, &freight, &mode, &createdAt)
	if err != nil {
		return nil, err
	}
	b.ManualNumber = manual != 0
	b.PaymentMode = core.PaymentMode(mode)
	if b.BookingDate, err = time.Parse("2006-01-02", bookingDate); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = time.Parse(sortableTimeLayout, createdAt); err != nil {
		return nil, err
	}
	if b.Weight, err = decimal.NewFromString(weight); err != nil {
		return nil, err
	}
	if b.Freight, err = decimal.NewFromString(freight); err != nil {
		return nil, err
	}
	return &b, nil
}

var (
	_ core.CounterStore = (*SQLiteCounterStore)(nil)
	_ core.BookingStore = (*SQLiteBookingStore)(nil)
)
