package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
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
	db := newTestDB(t, "scratch", "")
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "scratch", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestMigrate_AppliesSchemaIdempotently(t *testing.T) {
	for _, name := range []string{"ledger", "messages", "client_data"} {
		t.Run(name, func(t *testing.T) {
			db := newTestDB(t, name, ProfileStandard)
			require.NoError(t, db.Migrate())
			require.NoError(t, db.Migrate(), "second migration must be a no-op")
		})
	}

	db := newTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())
	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "unknown", ProfileCache)
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t, "messages", ProfileStandard)
	require.NoError(t, db.Migrate())

	insert := func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO messages (role, content, timestamp, created_at) VALUES ('user', 'hi', 't', 't')`)
		return err
	}

	t.Run("commit", func(t *testing.T) {
		require.NoError(t, WithTransaction(db.Conn(), insert))
	})

	t.Run("rollback on error", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			if err := insert(tx); err != nil {
				return err
			}
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("rollback on panic", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_ = insert(tx)
			panic("bad")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
	})

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM messages").Scan(&count))
	assert.Equal(t, 1, count, "only the committed insert survives")

	assert.Error(t, WithTransaction(nil, insert))
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}
