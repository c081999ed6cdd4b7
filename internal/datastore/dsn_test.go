package datastore

import (
	"strings"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/miri-pixeldb/internal/conf"
)

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := MySQLDSN(&conf.MySQLSettings{
		Host:     "db.example",
		Port:     3307,
		Username: "miri",
		Password: "p@ss:word",
		Database: "pixels",
	})

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.example:3307", parsed.Addr)
	assert.Equal(t, "miri", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "pixels", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
}

func TestPostgresDSN(t *testing.T) {
	t.Parallel()

	dsn := PostgresDSN(&conf.PostgresSettings{
		Host: "pg", Port: 5432, Username: "miri", Password: "secret", Database: "pixels",
	})
	assert.True(t, strings.HasPrefix(dsn, "host=pg port=5432 "))
	assert.Contains(t, dsn, "dbname=pixels")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "TimeZone=UTC")

	dsn = PostgresDSN(&conf.PostgresSettings{Host: "pg", Port: 5432, SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}
