package clientdata

import (
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db, zerolog.Nop()), zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db, zerolog.Nop()), zerolog.Nop())

	now := time.Now()
	for _, source := range AllSources {
		_, err := db.Exec("INSERT INTO client_data (source, cache_key, data, expires_at) VALUES (?, 'expired', '{}', ?)", source, now.Add(-time.Hour).Unix())
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO client_data (source, cache_key, data, expires_at) VALUES (?, 'fresh', '{}', ?)", source, now.Add(time.Hour).Unix())
		require.NoError(t, err)
	}

	require.NoError(t, job.Run())

	var remaining int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM client_data").Scan(&remaining))
	assert.Equal(t, len(AllSources), remaining)

	var expired int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM client_data WHERE cache_key = 'expired'").Scan(&expired))
	assert.Zero(t, expired)
}

func TestCleanupJobRunEmpty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db, zerolog.Nop()), zerolog.Nop())
	assert.NoError(t, job.Run())
}
