package datastore

import (
	"context"
	"net"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// MySQLManager handles a MySQL database.
type MySQLManager struct {
	db       *gorm.DB
	location string // host:port/database for display
}

// MySQLDSN renders the driver DSN for cfg. Times are stored and parsed in UTC.
func MySQLDSN(cfg *conf.MySQLSettings) string {
	dc := mysqldriver.NewConfig()
	dc.User = cfg.Username
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dc.DBName = cfg.Database
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// NewMySQLManager opens a MySQL database with a pooled connection.
func NewMySQLManager(cfg *conf.MySQLSettings, gcfg *gorm.Config) (*MySQLManager, error) {
	location := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + "/" + cfg.Database

	db, err := gorm.Open(mysql.Open(MySQLDSN(cfg)), gcfg)
	if err != nil {
		return nil, dbError(err, "open_mysql", errors.PriorityHigh, "location", location)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, "open_mysql", errors.PriorityHigh)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{db: db, location: location}, nil
}

// Initialize creates the schema.
func (m *MySQLManager) Initialize(ctx context.Context) error {
	return migrate(ctx, m.db)
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database location (host:port/database).
func (m *MySQLManager) Path() string {
	return m.location
}

// Dialect returns "mysql".
func (m *MySQLManager) Dialect() string {
	return "mysql"
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	return closeDB(m.db)
}
