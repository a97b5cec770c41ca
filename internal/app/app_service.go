package app

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"transwise/internal/core"
)

type appService struct {
	allocator core.SequenceAllocator
	unique    core.UniquenessValidator
	bookings  core.BookingService
	store     core.BookingStore
	counters  core.CounterLister
	logger    *zap.Logger
	schema    *jsonschema.Schema
}

// NewAppService wires the core services over the given stores. counters may be
// nil, in which case ListCounters and AuditCounters report an error.
func NewAppService(counterStore core.CounterStore, bookingStore core.BookingStore, counters core.CounterLister, logger *zap.Logger) ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	allocator := core.NewSequenceAllocator(counterStore, logger)
	unique := core.NewUniquenessValidator(bookingStore)
	return &appService{
		allocator: allocator,
		unique:    unique,
		bookings:  core.NewBookingService(allocator, unique, bookingStore, logger),
		store:     bookingStore,
		counters:  counters,
		logger:    logger.Named("app"),
		schema:    generateBookingSchema(),
	}
}

func generateBookingSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v core.CreateBookingRequest
	return reflector.Reflect(v)
}

func (s *appService) ResolveFinancialYear(ctx context.Context, date string) (*FinancialYearResult, error) {
	date = strings.TrimSpace(date)
	fy, err := core.ParseFinancialYearDate(date)
	if err != nil {
		return nil, err
	}
	return &FinancialYearResult{Date: date, FinancialYear: fy}, nil
}

func (s *appService) AllocateLRNumber(ctx context.Context, req AllocateRequest) (*AllocationResult, error) {
	scope := core.ScopeKey{
		CompanyCode:   req.CompanyCode,
		BranchCode:    req.BranchCode,
		FinancialYear: req.FinancialYear,
	}.Canonical()
	if scope.FinancialYear == "" {
		scope.FinancialYear = core.ResolveFinancialYearNow()
	}

	number, err := s.allocator.AllocateNext(ctx, scope.CompanyCode, scope.BranchCode, scope.FinancialYear)
	if err != nil {
		return nil, err
	}
	return &AllocationResult{Scope: scope, LRNumber: number}, nil
}

func (s *appService) GetCurrentSerial(ctx context.Context, scope core.ScopeKey) (*CounterResult, error) {
	scope = scope.Canonical()
	current, err := s.allocator.CurrentSerial(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &CounterResult{Scope: scope, CurrentSerial: current}, nil
}

func (s *appService) CheckLRNumber(ctx context.Context, companyCode, number string) (*UniquenessResult, error) {
	companyCode = core.CanonicalCode(companyCode)
	number = strings.TrimSpace(number)
	ok, err := s.unique.IsDocumentNumberUnique(ctx, companyCode, number)
	if err != nil {
		return nil, err
	}
	return &UniquenessResult{CompanyCode: companyCode, LRNumber: number, Unique: ok}, nil
}

func (s *appService) CreateBooking(ctx context.Context, req core.CreateBookingRequest) (*BookingResult, error) {
	b, err := s.bookings.CreateBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	return &BookingResult{Booking: b}, nil
}

func (s *appService) GetBooking(ctx context.Context, companyCode, lrNumber string) (*BookingResult, error) {
	b, err := s.bookings.GetBooking(ctx, companyCode, strings.TrimSpace(lrNumber))
	if err != nil {
		return nil, err
	}
	return &BookingResult{Booking: b}, nil
}

func (s *appService) ListBookings(ctx context.Context, filter core.BookingFilter) (*BookingListResult, error) {
	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []core.Booking{}
	}
	return &BookingListResult{CompanyCode: core.CanonicalCode(filter.CompanyCode), Bookings: bookings}, nil
}

func (s *appService) ListCounters(ctx context.Context, companyCode string) (*CounterListResult, error) {
	counters, err := s.listCounters(ctx, core.CanonicalCode(companyCode))
	if err != nil {
		return nil, err
	}
	return &CounterListResult{Counters: counters}, nil
}

func (s *appService) listCounters(ctx context.Context, companyCode string) ([]core.SequenceCounter, error) {
	if s.counters == nil {
		return nil, errors.New("counter store does not support listing")
	}
	all, err := s.counters.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list counters")
	}
	out := []core.SequenceCounter{}
	for _, c := range all {
		if companyCode == "" || c.Scope.CompanyCode == companyCode {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *appService) AuditCounters(ctx context.Context, companyCode string) (*AuditResult, error) {
	companyCode = core.CanonicalCode(companyCode)
	if companyCode == "" {
		return nil, errors.Wrap(core.ErrInvalidScope, "company code is required")
	}
	counters, err := s.listCounters(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	// Limit 0 reads every booking of the company.
	bookings, err := s.store.List(ctx, core.BookingFilter{CompanyCode: companyCode})
	if err != nil {
		return nil, errors.Wrap(err, "list bookings for audit")
	}

	findings := core.AuditCounters(counters, bookings)
	for _, f := range findings {
		s.logger.Warn("counter behind issued lr number",
			zap.Stringer("scope", f.Scope),
			zap.Int64("current_serial", f.CurrentSerial),
			zap.Int64("highest_issued", f.HighestIssued))
	}
	if findings == nil {
		findings = []core.AuditFinding{}
	}
	return &AuditResult{
		CompanyCode:     companyCode,
		CountersChecked: len(counters),
		BookingsChecked: len(bookings),
		Findings:        findings,
	}, nil
}

func (s *appService) BookingSchema() any {
	return s.schema
}
