package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transwise/internal/core"
)

func TestAuditCounters(t *testing.T) {
	blr := core.ScopeKey{CompanyCode: "CONAG", BranchCode: "BLR", FinancialYear: "2024-25"}
	counters := []core.SequenceCounter{
		{Scope: scopeHO, CurrentSerial: 5},
		{Scope: blr, CurrentSerial: 1},
	}
	bookings := []core.Booking{
		{LRNumber: core.FormatLRNumber(scopeHO, 5)},
		{LRNumber: core.FormatLRNumber(scopeHO, 3)},
		{LRNumber: core.FormatLRNumber(blr, 4)},
		{LRNumber: core.FormatLRNumber(blr, 2)},
		{LRNumber: "CONAG/PUNE/2024-25/0009"},
		{LRNumber: "CONAG/HO/2024-25/0999", ManualNumber: true},
		{LRNumber: "handwritten 12"},
	}

	findings := core.AuditCounters(counters, bookings)
	require.Len(t, findings, 2)

	assert.Equal(t, blr, findings[0].Scope)
	assert.Equal(t, int64(1), findings[0].CurrentSerial)
	assert.Equal(t, int64(4), findings[0].HighestIssued)
	assert.Equal(t, "CONAG/BLR/2024-25/0004", findings[0].LRNumber)

	assert.Equal(t, "PUNE", findings[1].Scope.BranchCode)
	assert.Equal(t, int64(0), findings[1].CurrentSerial)
}

func TestAuditCounters_IgnoresNonCanonicalNumbers(t *testing.T) {
	findings := core.AuditCounters(
		[]core.SequenceCounter{{Scope: scopeHO, CurrentSerial: 2}},
		[]core.Booking{
			{LRNumber: "CONAG/HO/2024-25/+009"},
			{LRNumber: "CONAG/HO/2024-25/00009"},
			{LRNumber: "conag/ho/2024-25/0009"},
		},
	)
	assert.Empty(t, findings)
}

func TestAuditCounters_Clean(t *testing.T) {
	findings := core.AuditCounters(
		[]core.SequenceCounter{{Scope: scopeHO, CurrentSerial: 2}},
		[]core.Booking{{LRNumber: core.FormatLRNumber(scopeHO, 1)}},
	)
	assert.Empty(t, findings)
}
