// Package drivers opens a database.DB for the engine named in a Config.
package drivers

import (
	"context"
	"fmt"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/database/duckdb"
	"github.com/koustreak/datrec/internal/database/mysql"
	"github.com/koustreak/datrec/internal/database/postgres"
	"github.com/koustreak/datrec/internal/database/sqlite"
	"github.com/koustreak/datrec/internal/errs"
)

// Open connects to the engine selected by cfg.Driver.
func Open(ctx context.Context, cfg *database.Config) (database.DB, error) {
	if cfg == nil || cfg.DSN == "" && cfg.Driver != database.DriverDuckDB {
		return nil, errs.New(errs.ErrKindInvalidInput, "database DSN is required")
	}

	switch cfg.Driver {
	case database.DriverSQLite, "":
		return sqlite.New(ctx, cfg)
	case database.DriverPostgres:
		return postgres.New(ctx, cfg)
	case database.DriverMySQL:
		return mysql.New(ctx, cfg)
	case database.DriverDuckDB:
		return duckdb.New(ctx, cfg)
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported driver %q", cfg.Driver))
	}
}
