package database

import "context"

// Executor runs SQL statements. It is the only thing the persistence
// pipeline and the row cursor need from a connection: a DB, a Tx, or a test
// double all satisfy it.
//
// Executors do no locking of their own. Callers serialize writes on a
// connection; the SQLite and DuckDB executors enforce a single connection.
type Executor interface {
	// Dialect reports the SQL dialect the statements must be written in.
	Dialect() Dialect

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) (Result, error)

	// Query runs a statement that returns rows. Callers must always call
	// Close on the returned Rows, even on error paths.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// DB is a pooled connection to one database.
type DB interface {
	Executor

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a transaction. Statements run through it share one connection.
type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Result is what an engine reports about a write.
type Result struct {
	RowsAffected int64

	// LastInsertID is the engine-generated row identifier, meaningful only
	// when HasLastInsertID is true. PostgreSQL never reports one.
	LastInsertID    int64
	HasLastInsertID bool
}

// ChangeReporter is implemented by executors that can report the effect of
// the previous statement on the same connection after its rows were read.
// The persistence pipeline uses it to fill in the row id of an
// INSERT … RETURNING statement.
type ChangeReporter interface {
	LastChanges(ctx context.Context) (rowID int64, changes int64, err error)
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}
