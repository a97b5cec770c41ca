package store

import (
	"context"
	"database/sql"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"transwise/internal/config"
	"transwise/internal/core"
	"transwise/internal/db"
)

// Stores is the pair of stores selected by config, plus the connections behind them.
// Only the connections a selected backend needs are opened.
type Stores struct {
	Counters core.CounterStore
	Bookings core.BookingStore

	Pool   *pgxpool.Pool
	SQLite *sql.DB
	Redis  *redis.Client
	Dynamo *dynamodb.Client

	tables          DynamoDBTables
	migrationsTable string
	logger          *zap.Logger
	closers         []func()
}

// Lister returns the counter store as a CounterLister. Every backend implements it.
func (s *Stores) Lister() core.CounterLister {
	l, _ := s.Counters.(core.CounterLister)
	return l
}

// Close releases every opened connection, in reverse order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Open connects the backends named in cfg.Store and builds both stores.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stores{migrationsTable: cfg.Database.MigrationsTable, logger: logger}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	retry := RetryConfig{
		MaxRetries:      cfg.Store.MaxRetries,
		InitialInterval: cfg.Store.InitialBackoff,
		MaxInterval:     cfg.Store.MaxBackoff,
	}
	tables := DynamoDBTables{
		Counters:       cfg.DynamoDB.CounterTable,
		Bookings:       cfg.DynamoDB.BookingTable,
		BookingLRIndex: cfg.DynamoDB.BookingLRIndex,
	}

	s.tables = tables

	if cfg.UsesBackend(config.BackendPostgres) {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.Pool = pool
		s.closers = append(s.closers, pool.Close)
	}
	if cfg.UsesBackend(config.BackendSQLite) {
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		s.SQLite = sqlDB
		s.closers = append(s.closers, func() { sqlDB.Close() })
		if err := EnsureSQLiteSchema(ctx, sqlDB); err != nil {
			return nil, err
		}
	}
	if cfg.UsesBackend(config.BackendRedis) {
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		s.Redis = client
		s.closers = append(s.closers, func() { client.Close() })
	}
	if cfg.UsesBackend(config.BackendDynamoDB) {
		client, err := db.NewDynamoDBClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, err
		}
		s.Dynamo = client
	}

	switch cfg.Store.CounterBackend {
	case config.BackendMemory:
		s.Counters = NewMemoryCounterStore()
	case config.BackendPostgres:
		s.Counters = NewPostgresCounterStore(s.Pool)
	case config.BackendSQLite:
		s.Counters = NewSQLiteCounterStore(s.SQLite)
	case config.BackendRedis:
		s.Counters = NewRedisCounterStore(s.Redis, cfg.Redis.KeyPrefix, retry)
	case config.BackendDynamoDB:
		s.Counters = NewDynamoDBCounterStore(s.Dynamo, tables.Counters, retry)
	default:
		return nil, errors.Newf("unknown counter backend %q", cfg.Store.CounterBackend)
	}

	switch cfg.Store.BookingBackend {
	case config.BackendMemory:
		s.Bookings = NewMemoryBookingStore()
	case config.BackendPostgres:
		s.Bookings = NewPostgresBookingStore(s.Pool)
	case config.BackendSQLite:
		s.Bookings = NewSQLiteBookingStore(s.SQLite)
	case config.BackendDynamoDB:
		s.Bookings = NewDynamoDBBookingStore(s.Dynamo, tables)
	default:
		return nil, errors.Newf("unsupported booking backend %q", cfg.Store.BookingBackend)
	}

	if cfg.Store.CounterBackend == config.BackendMemory {
		logger.Warn("in-memory counter store selected: LR numbers are not shared across processes and are lost on restart")
	}
	logger.Info("stores ready",
		zap.String("counter_backend", cfg.Store.CounterBackend),
		zap.String("booking_backend", cfg.Store.BookingBackend))

	ok = true
	return s, nil
}

// Migrate brings every opened backend's schema up to date: embedded SQL
// migrations on postgres, tables on sqlite and DynamoDB. Redis needs none.
func (s *Stores) Migrate(ctx context.Context) error {
	if s.Pool != nil {
		if err := db.Migrate(ctx, s.Pool, s.migrationsTable, s.logger); err != nil {
			return err
		}
	}
	if s.SQLite != nil {
		if err := EnsureSQLiteSchema(ctx, s.SQLite); err != nil {
			return err
		}
	}
	if s.Dynamo != nil {
		if err := EnsureDynamoDBTables(ctx, s.Dynamo, s.tables); err != nil {
			return err
		}
		s.logger.Info("dynamodb tables ready",
			zap.String("counters", s.tables.Counters),
			zap.String("bookings", s.tables.Bookings))
	}
	return nil
}
