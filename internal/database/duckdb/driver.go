// Package duckdb provides the DuckDB executor, backed by duckdb-go.
//
// DuckDB is embedded and single-writer like SQLite, so the pool keeps one
// connection. An empty DSN opens a private in-memory database.
package duckdb

import (
	"context"
	"database/sql"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/database/stdsql"
	"github.com/koustreak/datrec/internal/errs"

	_ "github.com/duckdb/duckdb-go/v2" // register "duckdb" driver
)

// Driver is a DuckDB implementation of database.DB.
type Driver struct {
	*stdsql.DB
}

// New opens the DuckDB database at cfg.DSN and verifies the connection.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("duckdb", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &Driver{DB: stdsql.NewDB(db, database.DialectDuckDB, cfg.QueryTimeout, mapError).WithoutRowID()}

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

	return d, nil
}

var _ database.DB = (*Driver)(nil)
