package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transwise/internal/config"
	"transwise/internal/db"
)

func openTestSQLite(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	sqlDB, err := db.OpenSQLite(ctx, config.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "lr.db"),
		BusyTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, EnsureSQLiteSchema(ctx, sqlDB))
	return sqlDB
}

func TestSQLiteCounterStore(t *testing.T) {
	runCounterContract(t, NewSQLiteCounterStore(openTestSQLite(t)))
}

func TestSQLiteBookingStore(t *testing.T) {
	runBookingContract(t, NewSQLiteBookingStore(openTestSQLite(t)))
}

func TestSQLiteCounterStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lr.db")
	cfg := config.SQLiteConfig{Path: path, BusyTimeout: time.Second}

	first, err := db.OpenSQLite(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, EnsureSQLiteSchema(ctx, first))
	_, err = NewSQLiteCounterStore(first).Update(ctx, testScope("HO"), increment)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := db.OpenSQLite(ctx, cfg)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, EnsureSQLiteSchema(ctx, second))

	next, err := NewSQLiteCounterStore(second).Update(ctx, testScope("HO"), increment)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)
}

func TestSQLiteCounterStore_CommitFailureReturnsError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT current_serial FROM lr_sequences").
		WithArgs("CONAG", "HO", "2024-25").
		WillReturnRows(sqlmock.NewRows([]string{"current_serial"}).AddRow(7))
	mock.ExpectExec("INSERT INTO lr_sequences").
		WithArgs("CONAG", "HO", "2024-25", int64(8), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	next, err := NewSQLiteCounterStore(sqlDB).Update(context.Background(), testScope("HO"), increment)
	require.Error(t, err)
	assert.Zero(t, next)
	assert.Contains(t, err.Error(), "commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteCounterStore_FnErrorRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT current_serial FROM lr_sequences").
		WillReturnRows(sqlmock.NewRows([]string{"current_serial"}))
	mock.ExpectRollback()

	boom := errors.New("exhausted")
	_, err = NewSQLiteCounterStore(sqlDB).Update(context.Background(), testScope("HO"), func(int64) (int64, error) {
		return 0, boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBookingStore_CountFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("SELECT count").WillReturnError(errors.New("disk I/O error"))

	_, err = NewSQLiteBookingStore(sqlDB).CountByLRNumber(context.Background(), "CONAG", "X")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
