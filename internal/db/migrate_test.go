package db

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(body)
}

func TestMigrationSource_UpAndDownPerVersion(t *testing.T) {
	src, err := MigrationSource()
	require.NoError(t, err)
	defer src.Close()

	var versions []uint
	version, err := src.First()
	require.NoError(t, err)
	for {
		versions = append(versions, version)

		up, ident, err := src.ReadUp(version)
		require.NoError(t, err, "version %d has no up migration", version)
		assert.NotEmpty(t, strings.TrimSpace(readAll(t, up)), ident)

		down, ident, err := src.ReadDown(version)
		require.NoError(t, err, "version %d has no down migration", version)
		assert.NotEmpty(t, strings.TrimSpace(readAll(t, down)), ident)

		version, err = src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, []uint{1, 2}, versions)
}

func TestMigrationSource_FirstCreatesLRSequences(t *testing.T) {
	src, err := MigrationSource()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	body := readAll(t, up)
	assert.Contains(t, body, "lr_sequences")
	assert.Contains(t, body, "cannot decrease")
}

func TestMigrateLogger_DebugOnly(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &migrateLogger{logger: zap.New(core)}
	assert.True(t, l.Verbose())

	l.Printf("Start buffering %v\n", "1/u lr_sequences")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.DebugLevel, entry.Level)
	assert.Equal(t, "Start buffering 1/u lr_sequences", entry.Message)

	quiet := &migrateLogger{logger: zap.NewNop()}
	assert.False(t, quiet.Verbose())
}
