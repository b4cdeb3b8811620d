package duckdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_BootstrapsSchema(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "duckdb-test-*")
	require.NoError(t, err)

	defer func() {
		err := os.RemoveAll(tmpDir)
		if err != nil {
			t.Errorf("failed to cleanup test directory: %v", err)
		}
	}()

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := NewDB(Settings{
		DbPath: dbPath,
	})
	require.NoError(t, err)
	require.NotNil(t, db)

	defer func() {
		err := db.Close()
		if err != nil {
			t.Errorf("failed to close database connection: %v", err)
		}
	}()

	for _, table := range []string{"snapshots", "classifications", "actions", "action_transitions", "audit_entries", "events"} {
		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		require.NoError(t, err, "table %s missing", table)
		assert.Equal(t, 0, count)
	}

	// The audit sequence starts at 1 and is monotonic.
	var seq int64
	err = db.QueryRow("SELECT nextval('audit_seq')").Scan(&seq)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}
