package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a migrated database in a per-test temp dir.
func NewTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	return db
}

func TestNew_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db, err := New(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())
}

func TestNew_Memory(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.RunMigrations())
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())
	require.NoError(t, db.RunMigrations())
}
