package database

import (
	"time"

	"github.com/majordome-go/majordome/config"
)

// DriverName is the database/sql driver the module opens.
const DriverName = "sqlite"

// Config defines one database connection.
//
// Example environment variables:
//
//	DB_SQL_DSN=file:app.db?_pragma=busy_timeout(5000)
//	DB_SQL_MAX_OPEN_CONNS=4
//	REPORTING_DB_SQL_DSN=file:reporting.db
type Config struct {
	// DSN is the data source name. Required.
	DSN string

	// MaxOpenConns limits open connections. Zero means unlimited.
	MaxOpenConns int

	// ConnMaxLifetime closes connections older than this. Zero keeps them.
	ConnMaxLifetime time.Duration
}

func loadConfig(g *config.Getter) (Config, error) {
	dsn, err := config.Require[string](g, "dsn")
	if err != nil {
		return Config{}, err
	}
	return Config{
		DSN:             dsn,
		MaxOpenConns:    config.GetOr(g, "max_open_conns", 0),
		ConnMaxLifetime: config.GetOr(g, "conn_max_lifetime", time.Duration(0)),
	}, nil
}
