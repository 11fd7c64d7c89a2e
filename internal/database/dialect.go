package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/datrec/internal/errs"
)

// Dialect controls the SQL the builders emit: placeholders, identifier
// quoting, conflict clauses and RETURNING support.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders and backtick identifiers.
	DialectMySQL

	// DialectSQLite uses ? placeholders.
	DialectSQLite

	// DialectDuckDB uses ? placeholders.
	DialectDuckDB
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	case DialectSQLite:
		return "sqlite"
	case DialectDuckDB:
		return "duckdb"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// Placeholder returns the parameter placeholder for the idx-th argument
// (1-based). Only Postgres uses the index.
func (d Dialect) Placeholder(idx int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", idx)
	}
	return "?"
}

// QuoteIdent quotes a SQL identifier. This safely handles reserved words and
// mixed-case names. MySQL gets backticks so it works without ANSI_QUOTES.
func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SupportsReturning reports whether INSERT … RETURNING is available.
func (d Dialect) SupportsReturning() bool {
	return d != DialectMySQL
}

// ConflictPolicy is the engine strategy for a write that violates a
// uniqueness or constraint check. The zero value, ConflictDefault, means
// "use the record type's declared policy".
type ConflictPolicy int

const (
	ConflictDefault ConflictPolicy = iota
	ConflictAbort
	ConflictRollback
	ConflictFail
	ConflictIgnore
	ConflictReplace
)

func (p ConflictPolicy) String() string {
	switch p {
	case ConflictAbort:
		return "abort"
	case ConflictRollback:
		return "rollback"
	case ConflictFail:
		return "fail"
	case ConflictIgnore:
		return "ignore"
	case ConflictReplace:
		return "replace"
	default:
		return "default"
	}
}

// ParseConflictPolicy parses the lower- or upper-case policy name. The empty
// string is ConflictDefault.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ConflictDefault, nil
	case "abort":
		return ConflictAbort, nil
	case "rollback":
		return ConflictRollback, nil
	case "fail":
		return ConflictFail, nil
	case "ignore":
		return ConflictIgnore, nil
	case "replace":
		return ConflictReplace, nil
	}
	return ConflictDefault, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown conflict policy %q", s))
}

// CheckConflictPolicy reports whether the dialect can render an INSERT with
// the policy.
func (d Dialect) CheckConflictPolicy(p ConflictPolicy) error {
	_, _, err := d.insertClauses(p)
	return err
}

// insertClauses returns the statement head ("INSERT INTO", "INSERT OR IGNORE
// INTO", …) and an optional tail placed after VALUES for the policy.
// ConflictDefault and ConflictAbort both render the engine default.
func (d Dialect) insertClauses(p ConflictPolicy) (head, tail string, err error) {
	if p == ConflictDefault || p == ConflictAbort {
		return "INSERT INTO", "", nil
	}

	switch d {
	case DialectSQLite:
		return "INSERT OR " + strings.ToUpper(p.String()) + " INTO", "", nil
	case DialectDuckDB:
		switch p {
		case ConflictIgnore, ConflictReplace:
			return "INSERT OR " + strings.ToUpper(p.String()) + " INTO", "", nil
		}
	case DialectPostgres:
		if p == ConflictIgnore {
			return "INSERT INTO", " ON CONFLICT DO NOTHING", nil
		}
	case DialectMySQL:
		switch p {
		case ConflictIgnore:
			return "INSERT IGNORE INTO", "", nil
		case ConflictReplace:
			return "REPLACE INTO", "", nil
		}
	}
	return "", "", errs.New(errs.ErrKindInvalidInput,
		fmt.Sprintf("conflict policy %s is not supported by %s", p, d))
}

// Selectable is one item of a RETURNING or SELECT column list.
type Selectable interface {
	SelectionSQL(d Dialect) string
}

type allColumns struct{}

func (allColumns) SelectionSQL(Dialect) string { return "*" }

// AllColumns selects every column of the table (*).
var AllColumns Selectable = allColumns{}

// Expr is a raw SQL selection such as "score + 1 AS next_score".
// It is inserted verbatim: never build it from user input.
type Expr string

func (e Expr) SelectionSQL(Dialect) string { return string(e) }

// Ident selects a single column by name, quoted for the dialect.
type Ident string

func (i Ident) SelectionSQL(d Dialect) string { return d.QuoteIdent(string(i)) }
