// Package sqlite provides the SQLite executor, backed by mattn/go-sqlite3.
//
// SQLite allows one writer at a time, so the pool is capped at a single
// connection. That also makes last_insert_rowid() and changes() refer to the
// statement the caller just ran, which LastChanges relies on.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/database/stdsql"
	"github.com/koustreak/datrec/internal/errs"

	_ "github.com/mattn/go-sqlite3" // register "sqlite3" driver
)

// Driver is a SQLite implementation of database.DB.
type Driver struct {
	*stdsql.DB
}

// New opens the SQLite database at cfg.DSN (a path or a file: URI), applies
// the connection pragmas and verifies the connection.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	d := &Driver{DB: stdsql.NewDB(db, database.DialectSQLite, cfg.QueryTimeout, mapError)}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applyPragmas(pingCtx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return mapError(err, fmt.Sprintf("failed to execute %q", pragma))
		}
	}
	return nil
}

// Begin starts a transaction whose executor also reports LastChanges.
func (d *Driver) Begin(ctx context.Context) (database.Tx, error) {
	tx, err := d.DB.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx}, nil
}

// LastChanges reports last_insert_rowid() and changes() for the previous
// statement on the connection.
func (d *Driver) LastChanges(ctx context.Context) (int64, int64, error) {
	return lastChanges(ctx, &d.Executor)
}

// Tx is a SQLite transaction.
type Tx struct {
	*stdsql.Tx
}

// LastChanges reports last_insert_rowid() and changes() inside the transaction.
func (t *Tx) LastChanges(ctx context.Context) (int64, int64, error) {
	return lastChanges(ctx, &t.Executor)
}

func lastChanges(ctx context.Context, e *stdsql.Executor) (int64, int64, error) {
	var rowID, changes int64
	if err := e.QueryRow(ctx, "SELECT last_insert_rowid(), changes()").Scan(&rowID, &changes); err != nil {
		return 0, 0, e.MapError(err, "failed to read last changes")
	}
	return rowID, changes, nil
}

var (
	_ database.DB             = (*Driver)(nil)
	_ database.ChangeReporter = (*Driver)(nil)
	_ database.Tx             = (*Tx)(nil)
	_ database.ChangeReporter = (*Tx)(nil)
)
