package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// PostgresManager handles a PostgreSQL database through pgx.
type PostgresManager struct {
	db       *gorm.DB
	location string
}

// PostgresDSN renders a key/value connection string for cfg.
func PostgresDSN(cfg *conf.PostgresSettings) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslmode)
}

// NewPostgresManager opens a PostgreSQL database.
func NewPostgresManager(cfg *conf.PostgresSettings, gcfg *gorm.Config) (*PostgresManager, error) {
	location := fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(postgres.Open(PostgresDSN(cfg)), gcfg)
	if err != nil {
		return nil, dbError(err, "open_postgres", errors.PriorityHigh, "location", location)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, "open_postgres", errors.PriorityHigh)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &PostgresManager{db: db, location: location}, nil
}

// Initialize creates the schema.
func (m *PostgresManager) Initialize(ctx context.Context) error {
	return migrate(ctx, m.db)
}

// DB returns the underlying GORM database.
func (m *PostgresManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database location (host:port/database).
func (m *PostgresManager) Path() string {
	return m.location
}

// Dialect returns "postgres".
func (m *PostgresManager) Dialect() string {
	return "postgres"
}

// Close closes the database connection.
func (m *PostgresManager) Close() error {
	return closeDB(m.db)
}
