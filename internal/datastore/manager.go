// Package datastore opens the pixel database, creates its schema and seeds
// the static tables.
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/datastore/entities"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/logger"
)

// Manager defines the interface for database lifecycle operations.
type Manager interface {
	// Initialize creates or updates the schema.
	Initialize(ctx context.Context) error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/database otherwise).
	Path() string
	// Dialect returns sqlite, mysql or postgres.
	Dialect() string
	// Close closes the database connection.
	Close() error
}

// NewManager opens the database selected by cfg.
func NewManager(cfg *conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	var (
		m   Manager
		err error
	)
	switch cfg.Type {
	case conf.DatabaseSQLite, "":
		m, err = NewSQLiteManager(cfg.SQLite.Path, gormConfig(cfg, log))
	case conf.DatabaseMySQL:
		m, err = NewMySQLManager(&cfg.MySQL, gormConfig(cfg, log))
	case conf.DatabasePostgres:
		m, err = NewPostgresManager(&cfg.Postgres, gormConfig(cfg, log))
	default:
		return nil, errors.Newf("%w: %q", ErrUnsupportedDatabase, cfg.Type).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		// keep the typed nil of a failed constructor out of the interface
		return nil, err
	}
	return m, nil
}

// gormConfig routes SQL tracing through the datastore module logger and
// enables dialect error translation so unique violations surface as
// gorm.ErrDuplicatedKey.
func gormConfig(cfg *conf.DatabaseSettings, log logger.Logger) *gorm.Config {
	var dbLog logger.Logger
	if log != nil {
		dbLog = log.Module(component)
	}
	return &gorm.Config{
		Logger:                 logger.NewGormLoggerAdapter(dbLog, cfg.SlowQueryThreshold),
		TranslateError:         true,
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// migrate creates every table and constraint.
func migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(entities.All()...); err != nil {
		return dbError(err, "migrate_schema", errors.PriorityCritical)
	}
	return nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "close", "")
	}
	return sqlDB.Close()
}
