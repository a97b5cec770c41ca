package core

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService creates and reads Lorry Receipts. It is the consumer of the
// LR numbers handed out by SequenceAllocator.
type BookingService interface {
	// CreateBooking books an LR. A manual number is checked with the advisory
	// uniqueness validator; otherwise the next number is allocated. If the number
	// cannot be obtained the booking is not created.
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error)

	GetBooking(ctx context.Context, companyCode, lrNumber string) (*Booking, error)

	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

type bookingService struct {
	allocator SequenceAllocator
	unique    UniquenessValidator
	bookings  BookingStore
	logger    *zap.Logger
	now       func() time.Time
}

// BookingOption customises NewBookingService.
type BookingOption func(*bookingService)

// WithClock overrides the time source used for default booking dates.
func WithClock(now func() time.Time) BookingOption {
	return func(s *bookingService) { s.now = now }
}

func NewBookingService(allocator SequenceAllocator, unique UniquenessValidator, bookings BookingStore, logger *zap.Logger, opts ...BookingOption) BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &bookingService{
		allocator: allocator,
		unique:    unique,
		bookings:  bookings,
		logger:    logger.Named("booking"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	date, err := req.date(now)
	if err != nil {
		return nil, err
	}
	fy := ResolveFinancialYear(date)
	weight, _ := parseAmount("weight", req.Weight)
	freight, _ := parseAmount("freight", req.Freight)

	b := &Booking{
		ID:            uuid.NewString(),
		CompanyCode:   req.CompanyCode,
		BranchCode:    req.BranchCode,
		FinancialYear: fy,
		BookingDate:   date,
		Consignor:     req.Consignor,
		Consignee:     req.Consignee,
		FromLocation:  req.FromLocation,
		ToLocation:    req.ToLocation,
		Packages:      req.Packages,
		Weight:        weight,
		Freight:       freight,
		PaymentMode:   req.PaymentMode,
		CreatedAt:     now.UTC(),
	}

	if req.ManualLRNumber != "" {
		ok, err := s.unique.IsDocumentNumberUnique(ctx, req.CompanyCode, req.ManualLRNumber)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Wrapf(ErrDuplicateLRNumber, "%s", req.ManualLRNumber)
		}
		b.LRNumber = req.ManualLRNumber
		b.ManualNumber = true
	} else {
		number, err := s.allocator.AllocateNext(ctx, req.CompanyCode, req.BranchCode, fy)
		if err != nil {
			return nil, err
		}
		b.LRNumber = number
	}

	if err := s.bookings.Insert(ctx, b); err != nil {
		// An allocated serial is not returned to the counter; the gap shows up
		// in bookings only, never in the counter itself.
		s.logger.Error("booking insert failed",
			zap.String("lr_number", b.LRNumber),
			zap.Bool("manual", b.ManualNumber),
			zap.Error(err))
		return nil, errors.Wrapf(err, "save booking %s", b.LRNumber)
	}

	s.logger.Info("booking created",
		zap.String("id", b.ID),
		zap.String("lr_number", b.LRNumber),
		zap.Bool("manual", b.ManualNumber))
	return b, nil
}

func (s *bookingService) GetBooking(ctx context.Context, companyCode, lrNumber string) (*Booking, error) {
	companyCode = CanonicalCode(companyCode)
	lrNumber = strings.TrimSpace(lrNumber)
	if companyCode == "" || lrNumber == "" {
		return nil, errors.Wrap(ErrInvalidBooking, "company code and lr number are required")
	}
	return s.bookings.GetByLRNumber(ctx, companyCode, lrNumber)
}

func (s *bookingService) ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	filter.CompanyCode = CanonicalCode(filter.CompanyCode)
	filter.BranchCode = CanonicalCode(filter.BranchCode)
	filter.FinancialYear = strings.TrimSpace(filter.FinancialYear)
	if filter.CompanyCode == "" {
		return nil, errors.Wrap(ErrInvalidBooking, "company code is required")
	}
	if filter.FinancialYear != "" {
		if err := ValidateFinancialYear(filter.FinancialYear); err != nil {
			return nil, err
		}
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.bookings.List(ctx, filter)
}
