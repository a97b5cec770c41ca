package core

import "sort"

// AuditFinding is a scope whose counter is behind a serial that was already issued.
// The next allocation in that scope would hand out HighestIssued again.
type AuditFinding struct {
	Scope         ScopeKey `json:"scope"`
	CurrentSerial int64    `json:"current_serial"`
	HighestIssued int64    `json:"highest_issued"`
	LRNumber      string   `json:"lr_number"`
}

// AuditCounters compares counters with the machine-allocated numbers found in
// bookings. Manual numbers and numbers that do not parse are ignored. A scope
// with bookings but no counter is audited against 0.
func AuditCounters(counters []SequenceCounter, bookings []Booking) []AuditFinding {
	current := make(map[ScopeKey]int64, len(counters))
	for _, c := range counters {
		current[c.Scope] = c.CurrentSerial
	}

	highest := make(map[ScopeKey]AuditFinding)
	for _, b := range bookings {
		if b.ManualNumber {
			continue
		}
		scope, serial, err := ParseLRNumber(b.LRNumber)
		if err != nil {
			continue
		}
		if f, ok := highest[scope]; ok && f.HighestIssued >= serial {
			continue
		}
		highest[scope] = AuditFinding{Scope: scope, HighestIssued: serial, LRNumber: b.LRNumber}
	}

	var out []AuditFinding
	for scope, f := range highest {
		f.CurrentSerial = current[scope]
		if f.HighestIssued > f.CurrentSerial {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope.String() < out[j].Scope.String() })
	return out
}
