package core

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

// FiscalYearStartMonth is the first month of the April–March financial year.
const FiscalYearStartMonth = time.April

var financialYearPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// ResolveFinancialYear returns the "YYYY-YY" label of the financial year containing t.
// January to March belong to the year that began the previous April.
// The calendar date is taken in t's own location.
func ResolveFinancialYear(t time.Time) string {
	start := t.Year()
	if t.Month() < FiscalYearStartMonth {
		start--
	}
	return fmt.Sprintf("%04d-%02d", start, (start+1)%100)
}

// ResolveFinancialYearNow resolves the financial year for the current local time.
func ResolveFinancialYearNow() string {
	return ResolveFinancialYear(time.Now())
}

// ResolveFinancialYearStrict is ResolveFinancialYear for untrusted input:
// the zero time is rejected instead of being labelled "0000-01".
func ResolveFinancialYearStrict(t time.Time) (string, error) {
	if t.IsZero() {
		return "", errors.Wrap(ErrInvalidScope, "financial year: date is not set")
	}
	return ResolveFinancialYear(t), nil
}

// ParseFinancialYearDate parses a YYYY-MM-DD date and resolves its financial year.
// An empty string means today.
func ParseFinancialYearDate(date string) (string, error) {
	if date == "" {
		return ResolveFinancialYearNow(), nil
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", WithKind(ErrInvalidScope, err, "financial year: invalid date %q", date)
	}
	return ResolveFinancialYearStrict(t)
}

// ValidateFinancialYear accepts only labels ResolveFinancialYear can produce:
// "YYYY-YY" where YY is the last two digits of YYYY+1.
func ValidateFinancialYear(label string) error {
	m := financialYearPattern.FindStringSubmatch(label)
	if m == nil {
		return errors.Wrapf(ErrInvalidScope, "financial year %q must look like 2024-25", label)
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if (start+1)%100 != end {
		return errors.Wrapf(ErrInvalidScope, "financial year %q does not span consecutive years", label)
	}
	return nil
}

// FinancialYearStart returns 1 April of the label's starting year, in loc.
func FinancialYearStart(label string, loc *time.Location) (time.Time, error) {
	if err := ValidateFinancialYear(label); err != nil {
		return time.Time{}, err
	}
	start, _ := strconv.Atoi(label[:4])
	return time.Date(start, FiscalYearStartMonth, 1, 0, 0, 0, 0, loc), nil
}
