package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New opens (creating if needed) the SQLite database at path. WAL mode and
// a busy timeout keep writer contention survivable; a single connection
// avoids SQLITE_BUSY between our own goroutines.
func New(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. Idempotent; runs at every startup.
func (db *DB) RunMigrations() error {
	migration := `
-- Activity records: one row per contiguous span of application focus.
-- Timestamps are stored as unix seconds so integrity checks over spans can
-- run inside SQL. A NULL end_time marks the record as open.
CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    app_name TEXT NOT NULL,
    app_id TEXT NOT NULL,
    window_title TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT '',
    document_path TEXT NOT NULL DEFAULT '',
    extra_context TEXT NOT NULL DEFAULT '',
    icon TEXT NOT NULL DEFAULT '',
    start_time INTEGER NOT NULL,
    end_time INTEGER,
    duration_seconds INTEGER NOT NULL DEFAULT 0 CHECK(duration_seconds >= 0),
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_start ON activities(start_time);
CREATE INDEX IF NOT EXISTS idx_activities_app ON activities(app_id);
CREATE INDEX IF NOT EXISTS idx_activities_open ON activities(end_time) WHERE end_time IS NULL;
`

	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
