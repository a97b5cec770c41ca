package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// LRSeparator joins the scope parts and the serial of an LR number.
const LRSeparator = "/"

// ScopeKey addresses exactly one LR counter.
type ScopeKey struct {
	CompanyCode   string `json:"company_code"`
	BranchCode    string `json:"branch_code"`
	FinancialYear string `json:"financial_year"`
}

// String renders the scope as "company/branch/fy". It is also the LR number prefix.
func (k ScopeKey) String() string {
	return k.CompanyCode + LRSeparator + k.BranchCode + LRSeparator + k.FinancialYear
}

// CanonicalCode is the stored form of a company or branch code: trimmed and
// upper case. Every entry point passes codes through it, so "conag" and
// "CONAG" address the same counters and bookings.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Canonical returns k with canonical codes and a trimmed financial year.
func (k ScopeKey) Canonical() ScopeKey {
	return ScopeKey{
		CompanyCode:   CanonicalCode(k.CompanyCode),
		BranchCode:    CanonicalCode(k.BranchCode),
		FinancialYear: strings.TrimSpace(k.FinancialYear),
	}
}

// Validate checks the scope without touching any store.
// Codes are not looked up; they only need to be non-empty and free of the separator.
func (k ScopeKey) Validate() error {
	if strings.TrimSpace(k.CompanyCode) == "" {
		return errors.Wrap(ErrInvalidScope, "company code is required")
	}
	if strings.TrimSpace(k.BranchCode) == "" {
		return errors.Wrap(ErrInvalidScope, "branch code is required")
	}
	if strings.Contains(k.CompanyCode, LRSeparator) || strings.Contains(k.BranchCode, LRSeparator) {
		return errors.Wrapf(ErrInvalidScope, "scope codes must not contain %q", LRSeparator)
	}
	return ValidateFinancialYear(k.FinancialYear)
}

// SequenceCounter is the persisted state of one scope.
type SequenceCounter struct {
	Scope         ScopeKey  `json:"scope"`
	CurrentSerial int64     `json:"current_serial"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FormatLRNumber renders "{company}/{branch}/{fy}/{serial}" with the serial
// zero-padded to four digits. Wider serials are kept whole.
func FormatLRNumber(scope ScopeKey, serial int64) string {
	return fmt.Sprintf("%s%s%04d", scope.String(), LRSeparator, serial)
}

// ParseLRNumber splits a machine-generated LR number back into scope and serial.
// Only the exact form FormatLRNumber produces is accepted: canonical codes and a
// serial of plain digits padded to four places, so "+001" or "00001" are rejected.
// Manually entered numbers need not follow this format.
func ParseLRNumber(number string) (ScopeKey, int64, error) {
	parts := strings.Split(number, LRSeparator)
	if len(parts) != 4 {
		return ScopeKey{}, 0, errors.Newf("lr number %q: expected 4 parts, got %d", number, len(parts))
	}
	scope := ScopeKey{CompanyCode: parts[0], BranchCode: parts[1], FinancialYear: parts[2]}
	if err := scope.Validate(); err != nil {
		return ScopeKey{}, 0, errors.Wrapf(err, "lr number %q", number)
	}
	if scope != scope.Canonical() {
		return ScopeKey{}, 0, errors.Newf("lr number %q: codes are not canonical", number)
	}
	digits := parts[3]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return ScopeKey{}, 0, errors.Newf("lr number %q: invalid serial %q", number, digits)
	}
	serial, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || serial < 1 || fmt.Sprintf("%04d", serial) != digits {
		return ScopeKey{}, 0, errors.Newf("lr number %q: invalid serial %q", number, digits)
	}
	return scope, serial, nil
}

type PaymentMode string

const (
	PaymentModePaid       PaymentMode = "PAID"
	PaymentModeToPay      PaymentMode = "TO_PAY"
	PaymentModeToBeBilled PaymentMode = "TO_BE_BILLED"
)

// Booking is a persisted Lorry Receipt. LRNumber never changes once stored.
type Booking struct {
	ID            string          `json:"id"`
	CompanyCode   string          `json:"company_code"`
	BranchCode    string          `json:"branch_code"`
	FinancialYear string          `json:"financial_year"`
	LRNumber      string          `json:"lr_number"`
	ManualNumber  bool            `json:"manual_number"`
	BookingDate   time.Time       `json:"booking_date"`
	Consignor     string          `json:"consignor"`
	Consignee     string          `json:"consignee"`
	FromLocation  string          `json:"from_location"`
	ToLocation    string          `json:"to_location"`
	Packages      int             `json:"packages"`
	Weight        decimal.Decimal `json:"weight"`
	Freight       decimal.Decimal `json:"freight"`
	PaymentMode   PaymentMode     `json:"payment_mode"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BookingFilter narrows ListBookings. Empty fields are ignored; CompanyCode is required.
type BookingFilter struct {
	CompanyCode   string
	BranchCode    string
	FinancialYear string
	Limit         int
}
