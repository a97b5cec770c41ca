package store

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"transwise/internal/core"
)

// MemoryCounterStore keeps counters in process memory. It satisfies the
// CounterStore contract within one process only; use it for tests and local runs.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[core.ScopeKey]*memoryCounter
}

type memoryCounter struct {
	mu    sync.Mutex
	value int64
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[core.ScopeKey]*memoryCounter)}
}

// counter returns the scope's slot. The map lock is held only for the lookup so
// that scopes never wait on each other.
func (s *MemoryCounterStore) counter(scope core.ScopeKey, create bool) *memoryCounter {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[scope]
	if !ok && create {
		c = &memoryCounter{}
		s.counters[scope] = c
	}
	return c
}

func (s *MemoryCounterStore) Get(ctx context.Context, scope core.ScopeKey) (int64, error) {
	c := s.counter(scope, false)
	if c == nil {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, nil
}

func (s *MemoryCounterStore) Update(ctx context.Context, scope core.ScopeKey, fn core.UpdateFunc) (int64, error) {
	c := s.counter(scope, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	next, err := fn(c.value)
	if err != nil {
		return 0, err
	}
	c.value = next
	return next, nil
}

// Snapshot lists every counter, ordered by scope.
func (s *MemoryCounterStore) Snapshot() []core.SequenceCounter {
	s.mu.Lock()
	scopes := make([]core.ScopeKey, 0, len(s.counters))
	for k := range s.counters {
		scopes = append(scopes, k)
	}
	s.mu.Unlock()

	sort.Slice(scopes, func(i, j int) bool { return scopes[i].String() < scopes[j].String() })
	out := make([]core.SequenceCounter, 0, len(scopes))
	for _, k := range scopes {
		c := s.counter(k, false)
		c.mu.Lock()
		out = append(out, core.SequenceCounter{Scope: k, CurrentSerial: c.value})
		c.mu.Unlock()
	}
	return out
}

func (s *MemoryCounterStore) List(ctx context.Context) ([]core.SequenceCounter, error) {
	return s.Snapshot(), nil
}

// MemoryBookingStore keeps bookings in process memory.
type MemoryBookingStore struct {
	mu       sync.RWMutex
	bookings []core.Booking
}

func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{}
}

func (s *MemoryBookingStore) CountByLRNumber(ctx context.Context, companyCode, lrNumber string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.bookings {
		if s.bookings[i].CompanyCode == companyCode && s.bookings[i].LRNumber == lrNumber {
			n++
		}
	}
	return n, nil
}

func (s *MemoryBookingStore) Insert(ctx context.Context, b *core.Booking) error {
	if b == nil {
		return errors.New("nil booking")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append(s.bookings, *b)
	return nil
}

func (s *MemoryBookingStore) GetByLRNumber(ctx context.Context, companyCode, lrNumber string) (*core.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.bookings) - 1; i >= 0; i-- {
		if s.bookings[i].CompanyCode == companyCode && s.bookings[i].LRNumber == lrNumber {
			b := s.bookings[i]
			return &b, nil
		}
	}
	return nil, errors.Wrapf(core.ErrBookingNotFound, "%s", lrNumber)
}

func (s *MemoryBookingStore) List(ctx context.Context, filter core.BookingFilter) ([]core.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Booking
	for i := len(s.bookings) - 1; i >= 0; i-- {
		b := s.bookings[i]
		if b.CompanyCode != filter.CompanyCode {
			continue
		}
		if filter.BranchCode != "" && b.BranchCode != filter.BranchCode {
			continue
		}
		if filter.FinancialYear != "" && b.FinancialYear != filter.FinancialYear {
			continue
		}
		out = append(out, b)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

var (
	_ core.CounterStore = (*MemoryCounterStore)(nil)
	_ core.BookingStore = (*MemoryBookingStore)(nil)
)
