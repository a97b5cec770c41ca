package store

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"transwise/internal/core"
)

// RedisCounterStore keeps each counter in a plain string key and updates it with
// WATCH/MULTI. A lost race is retried with backoff.
type RedisCounterStore struct {
	client    *redis.Client
	keyPrefix string
	retry     RetryConfig
}

func NewRedisCounterStore(client *redis.Client, keyPrefix string, retry RetryConfig) *RedisCounterStore {
	return &RedisCounterStore{client: client, keyPrefix: keyPrefix, retry: retry}
}

func (s *RedisCounterStore) key(scope core.ScopeKey) string {
	return s.keyPrefix + scope.String()
}

func (s *RedisCounterStore) Get(ctx context.Context, scope core.ScopeKey) (int64, error) {
	v, err := s.client.Get(ctx, s.key(scope)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to read lr sequence")
	}
	return v, nil
}

func (s *RedisCounterStore) Update(ctx context.Context, scope core.ScopeKey, fn core.UpdateFunc) (int64, error) {
	key := s.key(scope)
	var next int64

	err := retryOnConflict(ctx, s.retry, func() error {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, key).Int64()
			if err != nil && err != redis.Nil {
				return errors.Wrap(err, "failed to read lr sequence")
			}

			n, err := fn(current)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, n, 0)
				return nil
			})
			if err != nil {
				return err
			}
			next = n
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			return core.WithKind(errWriteConflict, err, "lr sequence changed during transaction")
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// List scans the key prefix. Keys that do not parse as a scope are skipped.
func (s *RedisCounterStore) List(ctx context.Context) ([]core.SequenceCounter, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan lr sequences")
	}
	sort.Strings(keys)

	var out []core.SequenceCounter
	for _, key := range keys {
		parts := strings.Split(strings.TrimPrefix(key, s.keyPrefix), core.LRSeparator)
		if len(parts) != 3 {
			continue
		}
		scope := core.ScopeKey{CompanyCode: parts[0], BranchCode: parts[1], FinancialYear: parts[2]}
		v, err := s.Get(ctx, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, core.SequenceCounter{Scope: scope, CurrentSerial: v})
	}
	return out, nil
}

var _ core.CounterStore = (*RedisCounterStore)(nil)
