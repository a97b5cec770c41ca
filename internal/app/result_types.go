package app

import "transwise/internal/core"

// FinancialYearResult is returned by ResolveFinancialYear.
type FinancialYearResult struct {
	Date          string `json:"date,omitempty"`
	FinancialYear string `json:"financial_year"`
}

// AllocationResult is returned by AllocateLRNumber.
type AllocationResult struct {
	Scope    core.ScopeKey `json:"scope"`
	LRNumber string        `json:"lr_number"`
}

// CounterResult is returned by GetCurrentSerial.
type CounterResult struct {
	Scope         core.ScopeKey `json:"scope"`
	CurrentSerial int64         `json:"current_serial"`
}

// UniquenessResult is returned by CheckLRNumber. Unique is advisory.
type UniquenessResult struct {
	CompanyCode string `json:"company_code"`
	LRNumber    string `json:"lr_number"`
	Unique      bool   `json:"unique"`
}

type BookingResult struct {
	Booking *core.Booking `json:"booking"`
}

type BookingListResult struct {
	CompanyCode string         `json:"company_code"`
	Bookings    []core.Booking `json:"bookings"`
}

type CounterListResult struct {
	Counters []core.SequenceCounter `json:"counters"`
}

// AuditResult is returned by AuditCounters. An empty Findings means every
// counter is at or ahead of the numbers found in bookings.
type AuditResult struct {
	CompanyCode     string              `json:"company_code"`
	CountersChecked int                 `json:"counters_checked"`
	BookingsChecked int                 `json:"bookings_checked"`
	Findings        []core.AuditFinding `json:"findings"`
}
