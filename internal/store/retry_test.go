package store

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"transwise/internal/core"
)

func fastRetry(max uint64) RetryConfig {
	return RetryConfig{MaxRetries: max, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetryOnConflict_RetriesConflictsUntilSuccess(t *testing.T) {
	attempts := 0
	err := retryOnConflict(context.Background(), fastRetry(5), func() error {
		attempts++
		if attempts < 3 {
			return core.WithKind(errWriteConflict, errors.New("lost race"), "update")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryOnConflict_OtherErrorsStopImmediately(t *testing.T) {
	attempts := 0
	boom := errors.New("connection refused")
	err := retryOnConflict(context.Background(), fastRetry(5), func() error {
		attempts++
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, core.ErrConflict))
	assert.Equal(t, 1, attempts)
}

func TestRetryOnConflict_ExhaustionReportsConflict(t *testing.T) {
	attempts := 0
	err := retryOnConflict(context.Background(), fastRetry(2), func() error {
		attempts++
		return core.WithKind(errWriteConflict, errors.New("lost race"), "update")
	})
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, 3, attempts, "one try plus two retries")
}

func TestRetryOnConflict_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := retryOnConflict(ctx, fastRetry(100), func() error {
		attempts++
		cancel()
		return core.WithKind(errWriteConflict, errors.New("lost race"), "update")
	})
	assert.Error(t, err)
	assert.Less(t, attempts, 100)
}
