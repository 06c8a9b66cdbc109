// Package sqldb is the relational persistence backend. It runs on sqlx over
// lib/pq ("postgres"), pgx ("pgx") or the pure-Go sqlite driver ("sqlite").
package sqldb

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func dialectOf(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return 0, errors.Newf("sqldb: unsupported driver %q", driver)
}

// DB wraps sqlx.DB to provide transaction management.
type DB struct {
	*sqlx.DB
	dialect Dialect
	logger  zerolog.Logger
}

type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

func Connect(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	dialect, err := dialectOf(cfg.Driver)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "sqldb: connect %s", cfg.Driver)
	}

	maxOpen := cfg.MaxOpenConns
	if dialect == SQLite {
		// sqlite allows one writer; a single connection keeps transactions simple
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}

	logger.Info().Str("driver", cfg.Driver).Msg("connected to SQL database")
	return &DB{DB: db, dialect: dialect, logger: logger}, nil
}

func (db *DB) Dialect() Dialect { return db.dialect }

// Querier returns the transaction carried by ctx, or the pool.
func (db *DB) Querier(ctx context.Context) sqlx.ExtContext {
	if tx, ok := GetTx(ctx); ok {
		return tx.Tx
	}
	return db.DB
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
