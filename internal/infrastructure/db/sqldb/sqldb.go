// Package sqldb implements the relational repositories (accounts, sessions,
// patients and readings) on database/sql for MySQL and SQLite.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

const defaultTimeout = 5 * time.Second

// Dialect names a supported database/sql driver.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite3"
)

// Config captures the settings for opening the relational database.
type Config struct {
	Driver  Dialect
	DSN     string
	Timeout time.Duration
}

// DB is a database handle that knows its dialect.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Open connects to the configured database and verifies connectivity with a ping.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dsn := cfg.DSN
	switch cfg.Driver {
	case MySQL:
		parsed, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("sqldb: parse mysql dsn: %w", err)
		}
		// RowsAffected must report matched rows so that a no-op UPDATE is
		// distinguishable from a missing row.
		parsed.ClientFoundRows = true
		dsn = parsed.FormatDSN()
	case SQLite:
	default:
		return nil, fmt.Errorf("sqldb: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(string(cfg.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open: %w", err)
	}
	if cfg.Driver == SQLite {
		// Each sqlite connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqldb: ping: %w", err)
	}

	return &DB{DB: db, dialect: cfg.Driver}, nil
}

// Dialect reports the driver the handle was opened with.
func (db *DB) Dialect() Dialect { return db.dialect }

// lockClause returns the row-locking suffix for SELECTs inside a transaction.
// SQLite serializes writers and has no FOR UPDATE.
func (db *DB) lockClause() string {
	if db.dialect == MySQL {
		return " FOR UPDATE"
	}
	return ""
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin tx", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit tx", err)
	}
	return nil
}

// storeErr marks a driver failure as the store being unavailable. Callers map
// sql.ErrNoRows and constraint violations to domain errors before reaching it.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scanner interface {
	Scan(dest ...any) error
}
