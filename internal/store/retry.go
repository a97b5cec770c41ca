// Package store holds the CounterStore and BookingStore backends.
package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"

	"transwise/internal/core"
)

// RetryConfig bounds the conflict retries of optimistic backends.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      10,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
	}
}

// errWriteConflict marks a single lost optimistic race. Only these are retried.
var errWriteConflict = errors.New("write conflict")

// retryOnConflict reruns op while it reports errWriteConflict. Any other error
// stops immediately. When retries run out the result is marked core.ErrConflict.
func retryOnConflict(ctx context.Context, cfg RetryConfig, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
	err := backoff.Retry(func() error {
		err := op()
		if err == nil || errors.Is(err, errWriteConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	if errors.Is(err, errWriteConflict) {
		return core.WithKind(core.ErrConflict, err, "gave up after %d retries", cfg.MaxRetries)
	}
	return err
}
