package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// SQLiteManager handles a file backed SQLite database.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens (and creates) the database at dbPath. Foreign keys
// are switched on per connection, which the cascading deletes depend on.
func NewSQLiteManager(dbPath string, cfg *gorm.Config) (*SQLiteManager, error) {
	if dbPath == "" {
		return nil, errors.Configuration(component, "sqlite path is empty")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.FileError(err, dir, 0)
		}
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, dbError(err, "open_sqlite", errors.PriorityHigh, "path", dbPath)
	}

	// SQLite has a single writer.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, "open_sqlite", errors.PriorityHigh)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteManager{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Initialize creates the schema.
func (m *SQLiteManager) Initialize(ctx context.Context) error {
	return migrate(ctx, m.db)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Dialect returns "sqlite".
func (m *SQLiteManager) Dialect() string {
	return "sqlite"
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	return closeDB(m.db)
}
