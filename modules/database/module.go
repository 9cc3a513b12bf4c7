// Package database provides a SQL database module backed by the pure Go
// SQLite driver, with a prepared statement cache.
//
// Statements are prepared once per query text, or once per caller-supplied
// hash when building the query text is itself expensive:
//
//	db, _ := database.Default.Get(app)
//	rows, err := database.Select(ctx, db, "SELECT id, name FROM users WHERE id = ?", scanUser, id)
//	user, err := database.ExpectOne("user", rows)
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/majordome-go/majordome"
	"github.com/majordome-go/majordome/memo"
)

// ModuleName is the name of this module
const ModuleName = "db.sql"

// Module opens databases. Instances are shared per resolved Config.
var Module = &majordome.Definition[*DB, Config]{
	Name:    ModuleName,
	Version: "1.0.0",
	Configure: func(ctx context.Context, b *majordome.Builder, opts majordome.InitOptions) (Config, error) {
		if cfg, ok := majordome.OptionConfig[Config](opts); ok {
			return cfg, nil
		}
		return loadConfig(b.Getter(opts, ModuleName))
	},
	Construct: func(ctx context.Context, b *majordome.Builder, cfg Config) (*DB, error) {
		return Open(ctx, cfg, b.Logger())
	},
}

// Default is the database configured from the DB_SQL_* keys.
var Default = majordome.Declare("db", Module)

// Open connects to the database described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg Config, logger majordome.Logger) (*DB, error) {
	db, err := sql.Open(DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Connected to database", "driver", DriverName, "maxOpenConns", cfg.MaxOpenConns)

	return &DB{
		db:         db,
		statements: memo.New[string, *sql.Stmt](),
		hashed:     memo.New[uint64, *sql.Stmt](),
		logger:     logger,
	}, nil
}

// Stop closes the cached statements and the connection pool.
func (d *DB) Stop(ctx context.Context, app *majordome.App) error {
	return d.Close()
}
