// Package stdsql adapts database/sql handles to the database.Executor
// contract. The SQLite, MySQL and DuckDB executors are thin layers on top of
// it that differ only in how they open the pool and classify driver errors.
package stdsql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/koustreak/datrec/internal/database"
)

// MapFunc translates a native driver error into an *errs.Error. It is only
// called with a non-nil err.
type MapFunc func(err error, msg string) error

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor implements database.Executor over a *sql.DB or *sql.Tx.
type Executor struct {
	q       queryer
	dialect database.Dialect
	timeout time.Duration
	mapErr  MapFunc

	// noRowID is set for engines whose driver reports a zero LastInsertId
	// instead of an error when there is no rowid.
	noRowID bool
}

func (e *Executor) Dialect() database.Dialect { return e.dialect }

// Exec runs a statement that returns no rows.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	res, err := e.q.ExecContext(ctx, query, args...)
	if err != nil {
		return database.Result{}, e.mapErr(err, "exec failed")
	}

	var out database.Result
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if e.noRowID {
		return out, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
		out.HasLastInsertID = true
	}
	return out, nil
}

// Query runs a statement that returns rows. The statement deadline stays
// armed until the returned Rows is closed.
func (e *Executor) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	ctx, cancel := e.withTimeout(ctx)

	rows, err := e.q.QueryContext(ctx, query, args...)
	if err != nil {
		cancel()
		return nil, e.mapErr(err, "query failed")
	}
	return &Rows{rows: rows, cancel: cancel, mapErr: e.mapErr}, nil
}

// QueryRow runs a single-row query on the underlying handle without
// wrapping. Drivers use it for engine-specific bookkeeping queries.
func (e *Executor) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return e.q.QueryRowContext(ctx, query, args...)
}

// MapError exposes the driver's error classifier.
func (e *Executor) MapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return e.mapErr(err, msg)
}

func (e *Executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

// DB implements database.DB over a *sql.DB.
type DB struct {
	Executor
	db *sql.DB
}

// NewDB wraps db. timeout is the per-statement deadline, 0 disables it.
func NewDB(db *sql.DB, d database.Dialect, timeout time.Duration, mapErr MapFunc) *DB {
	return &DB{
		Executor: Executor{q: db, dialect: d, timeout: timeout, mapErr: mapErr},
		db:       db,
	}
}

// WithoutRowID stops Exec from reporting LastInsertId.
func (d *DB) WithoutRowID() *DB {
	d.noRowID = true
	return d
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return d.mapErr(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool.
func (d *DB) Close() {
	_ = d.db.Close()
}

// Begin starts a transaction.
func (d *DB) Begin(ctx context.Context) (database.Tx, error) {
	return d.BeginTx(ctx)
}

// BeginTx is Begin returning the concrete type.
func (d *DB) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, d.mapErr(err, "begin failed")
	}
	return &Tx{
		Executor: Executor{q: tx, dialect: d.dialect, timeout: d.timeout, mapErr: d.mapErr, noRowID: d.noRowID},
		tx:       tx,
	}, nil
}

// SQL returns the underlying *sql.DB (for advanced use).
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Tx implements database.Tx over a *sql.Tx.
type Tx struct {
	Executor
	tx *sql.Tx
}

func (t *Tx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return t.mapErr(err, "commit failed")
	}
	return nil
}

func (t *Tx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return t.mapErr(err, "rollback failed")
	}
	return nil
}

// Rows wraps *sql.Rows to satisfy database.Rows.
type Rows struct {
	rows   *sql.Rows
	cancel context.CancelFunc
	mapErr MapFunc
}

func (r *Rows) Next() bool { return r.rows.Next() }

func (r *Rows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return r.mapErr(err, "scan failed")
	}
	return nil
}

func (r *Rows) Columns() ([]string, error) {
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, r.mapErr(err, "columns failed")
	}
	return cols, nil
}

func (r *Rows) Close() {
	_ = r.rows.Close()
	r.cancel()
}

func (r *Rows) Err() error {
	if err := r.rows.Err(); err != nil {
		return r.mapErr(err, "row iteration failed")
	}
	return nil
}
