// Package database defines the executor contract datrec runs statements
// through, plus the dialect-aware SQL fragments the persistence layer needs.
//
// All layers above this package talk only to Executor / DB / Rows. They
// never import the sqlite, postgres, mysql or duckdb packages directly;
// the drivers package picks one from configuration.
package database
