package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// openTimeout bounds the connectivity probe after opening.
	openTimeout = 5 * time.Second

	// dirPerm/filePerm keep the history store private to the daemon's
	// user. The file chmod is best-effort on first run: SQLite creates
	// the file lazily on the first write.
	dirPerm  = 0750
	filePerm = 0600
)

// Config holds the SQLite settings from the database section of the
// configuration file.
type Config struct {
	// Path is the database file. Its directory is created on demand.
	Path string

	// WALMode turns on write-ahead logging so snapshot reads do not
	// block the recorder's writes.
	WALMode bool

	// BusyTimeout is how long a statement waits on a lock, in seconds.
	BusyTimeout int
}

// DB is the daemon's handle on its SQLite file: an embedded *sql.DB
// plus migration support and a health probe.
//
// The pool is pinned to a single connection. SQLite allows one writer,
// and the history recorder is the only writer this process has; a
// second connection would only manufacture lock contention.
type DB struct {
	*sql.DB
	path string
}

// Open opens (and on first run creates) the database at cfg.Path,
// applies the connection pragmas and verifies the file is usable.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // best effort on the error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	_ = os.Chmod(cfg.Path, filePerm) //nolint:errcheck // file may not exist until first write

	return db, nil
}

// dsn builds the go-sqlite3 connection string. Foreign keys are always
// on; WAL and the busy timeout follow the config.
func dsn(cfg Config) string {
	s := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		s += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return s
}

// Close releases the connection. Safe on a DB that never opened.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to confirm the connection is alive.
// Wired into GET /health alongside the other component probes.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
