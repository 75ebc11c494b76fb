// Package testing provides test helpers shared across packages.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/rwagpt/agent/internal/database"
)

// profiles mirrors the production profile of each named database
var profiles = map[string]database.DatabaseProfile{
	"ledger":      database.ProfileLedger,
	"messages":    database.ProfileStandard,
	"client_data": database.ProfileCache,
}

// NewTestDB creates a file-backed SQLite database in a per-test directory
// and applies the schema registered for name. Unknown names get an empty
// database. The database is closed when the test ends.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile, ok := profiles[name]
	if !ok {
		profile = database.ProfileStandard
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}
