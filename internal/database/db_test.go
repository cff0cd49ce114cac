package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_DefaultsToStandardProfile(t *testing.T) {
	db := newTempDB(t, "history", "")
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "history", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestMigrate_IsIdempotent(t *testing.T) {
	for _, name := range []string{"cache", "history", "portfolio"} {
		t.Run(name, func(t *testing.T) {
			db := newTempDB(t, name, ProfileCache)
			require.NoError(t, db.Migrate())
			require.NoError(t, db.Migrate())
		})
	}
}

func TestMigrate_CreatesCacheTables(t *testing.T) {
	db := newTempDB(t, "cache", ProfileCache)
	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('scenario_scores', 'population_runs')",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTempDB(t, "scratch", ProfileStandard)
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction(t *testing.T) {
	db := newTempDB(t, "history", ProfileStandard)
	require.NoError(t, db.Migrate())

	t.Run("commits on success", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_, err := tx.Exec("INSERT INTO daily_prices (ticker, date, close) VALUES ('VTI', 1, 100)")
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM daily_prices").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			if _, err := tx.Exec("INSERT INTO daily_prices (ticker, date, close) VALUES ('TLT', 1, 50)"); err != nil {
				return err
			}
			return boom
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, boom))

		var count int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM daily_prices WHERE ticker = 'TLT'").Scan(&count))
		assert.Equal(t, 0, count)
	})

	t.Run("recovers from panic", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			panic("unexpected")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
	})

	t.Run("nil connection", func(t *testing.T) {
		assert.Error(t, WithTransaction(nil, func(tx *sql.Tx) error { return nil }))
	})
}

func TestHealthCheckAndStats(t *testing.T) {
	db := newTempDB(t, "cache", ProfileCache)
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	require.NoError(t, db.HealthCheck(ctx))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cache", stats.Name)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}
