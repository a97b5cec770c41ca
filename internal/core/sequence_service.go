package core

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type SequenceAllocator interface {
	// AllocateNext reserves the next serial of the (company, branch, fy) counter and
	// returns the formatted LR number, e.g. "CONAG/HO/2024-25/0001".
	//
	// If ctx is cancelled after the store transaction was submitted the increment
	// may still commit: an abandoned call can consume a serial.
	AllocateNext(ctx context.Context, companyCode, branchCode, financialYear string) (string, error)

	// CurrentSerial reads the last allocated serial for display. Stale by nature;
	// never use it to predict the next number.
	CurrentSerial(ctx context.Context, scope ScopeKey) (int64, error)
}

type sequenceAllocator struct {
	store  CounterStore
	logger *zap.Logger
}

func NewSequenceAllocator(store CounterStore, logger *zap.Logger) SequenceAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sequenceAllocator{store: store, logger: logger.Named("sequence")}
}

func (s *sequenceAllocator) AllocateNext(ctx context.Context, companyCode, branchCode, financialYear string) (string, error) {
	scope := ScopeKey{CompanyCode: companyCode, BranchCode: branchCode, FinancialYear: financialYear}.Canonical()
	if err := scope.Validate(); err != nil {
		return "", err
	}

	serial, err := s.store.Update(ctx, scope, nextSerial)
	if err != nil {
		s.logger.Error("lr allocation failed", zap.Stringer("scope", scope), zap.Error(err))
		return "", WithKind(ErrAllocationFailed, err, "allocate lr number for %s", scope)
	}

	number := FormatLRNumber(scope, serial)
	s.logger.Info("lr number allocated",
		zap.Stringer("scope", scope),
		zap.Int64("serial", serial),
		zap.String("lr_number", number))
	return number, nil
}

func (s *sequenceAllocator) CurrentSerial(ctx context.Context, scope ScopeKey) (int64, error) {
	scope = scope.Canonical()
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	current, err := s.store.Get(ctx, scope)
	if err != nil {
		return 0, errors.Wrapf(err, "read counter %s", scope)
	}
	return current, nil
}

// nextSerial is the only mutation ever applied to a counter.
func nextSerial(current int64) (int64, error) {
	if current < 0 {
		return 0, errors.Newf("counter holds negative serial %d", current)
	}
	if current == math.MaxInt64 {
		return 0, errors.New("counter exhausted")
	}
	return current + 1, nil
}
