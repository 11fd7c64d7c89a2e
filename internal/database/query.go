package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/datrec/internal/errs"
)

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected to prevent SQL injection
// through the operator position (which cannot be parameterized).
var validOps = map[string]bool{
	"=":     true,
	"!=":    true,
	"<>":    true,
	"<":     true,
	">":     true,
	"<=":    true,
	">=":    true,
	"LIKE":  true,
	"ILIKE": true,
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string; they are always passed as args.
//
// Usage (SQLite):
//
//	sql, args, err := Select("players", DialectSQLite).
//	    Columns("id", "name", "score").
//	    Where("score", ">", 10).
//	    OrderBy("id", Asc).
//	    Limit(20).
//	    Build()
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   *int
	offset  *int
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	op     string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. op must be one of the allowed comparison
// operators (=, !=, <, >, <=, >=, LIKE, ILIKE).
// Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip (for pagination).
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error if any WHERE operator is not in the allowlist.
func (b *SelectBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "select: empty table name")
	}

	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = b.dialect.QuoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(b.dialect.QuoteIdent(b.table))

	var args []any
	argIdx := 1

	// --- WHERE ---
	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			op := strings.ToUpper(w.op)
			if !validOps[op] {
				return "", nil, errs.New(errs.ErrKindInvalidInput,
					fmt.Sprintf("unsupported WHERE operator: %q", w.op))
			}
			if op == "ILIKE" && b.dialect != DialectPostgres && b.dialect != DialectDuckDB {
				return "", nil, errs.New(errs.ErrKindInvalidInput,
					fmt.Sprintf("ILIKE is not supported by %s", b.dialect))
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", b.dialect.QuoteIdent(w.column), op, b.dialect.Placeholder(argIdx)))
			args = append(args, w.value)
			argIdx++
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	// --- ORDER BY ---
	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", b.dialect.QuoteIdent(o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	// --- LIMIT ---
	if b.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.dialect.Placeholder(argIdx))
		args = append(args, *b.limit)
		argIdx++
	}

	// --- OFFSET ---
	if b.offset != nil {
		// SQLite and MySQL only accept OFFSET after a LIMIT.
		if b.limit == nil && b.dialect == DialectMySQL {
			return "", nil, errs.New(errs.ErrKindInvalidInput, "mysql: OFFSET requires LIMIT")
		}
		if b.limit == nil && b.dialect == DialectSQLite {
			sb.WriteString(" LIMIT -1")
		}
		sb.WriteString(" OFFSET ")
		sb.WriteString(b.dialect.Placeholder(argIdx))
		args = append(args, *b.offset)
	}

	return sb.String(), args, nil
}

// InsertBuilder constructs a parameterized INSERT statement, optionally
// with a conflict policy and a RETURNING clause.
//
//	sql, args, err := Insert("players", DialectSQLite).
//	    Values([]string{"name", "score"}, []any{"Arthur", 1000}).
//	    OnConflict(ConflictIgnore).
//	    Returning(Ident("id"), Ident("name")).
//	    Build()
//	// INSERT OR IGNORE INTO "players" ("name", "score") VALUES (?, ?) RETURNING "id", "name"
type InsertBuilder struct {
	table     string
	dialect   Dialect
	policy    ConflictPolicy
	columns   []string
	values    []any
	returning []Selectable
}

// Insert starts a new InsertBuilder for the given table and dialect.
func Insert(table string, d Dialect) *InsertBuilder {
	return &InsertBuilder{table: table, dialect: d}
}

// Values sets the inserted columns and their arguments, position by position.
func (b *InsertBuilder) Values(columns []string, values []any) *InsertBuilder {
	b.columns = columns
	b.values = values
	return b
}

// OnConflict sets the conflict policy.
func (b *InsertBuilder) OnConflict(p ConflictPolicy) *InsertBuilder {
	b.policy = p
	return b
}

// Returning requests the listed selection back from the statement. An empty
// list builds a plain INSERT.
func (b *InsertBuilder) Returning(sel ...Selectable) *InsertBuilder {
	b.returning = sel
	return b
}

// Build produces the final SQL string and argument slice.
func (b *InsertBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "insert: empty table name")
	}
	if len(b.columns) != len(b.values) {
		return "", nil, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("insert: %d columns but %d values", len(b.columns), len(b.values)))
	}
	if len(b.returning) > 0 && !b.dialect.SupportsReturning() {
		return "", nil, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("RETURNING is not supported by %s", b.dialect))
	}

	head, tail, err := b.dialect.insertClauses(b.policy)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString(head)
	sb.WriteByte(' ')
	sb.WriteString(b.dialect.QuoteIdent(b.table))

	switch {
	case len(b.columns) > 0:
		cols := make([]string, len(b.columns))
		marks := make([]string, len(b.columns))
		for i, c := range b.columns {
			cols[i] = b.dialect.QuoteIdent(c)
			marks[i] = b.dialect.Placeholder(i + 1)
		}
		sb.WriteString(" (")
		sb.WriteString(strings.Join(cols, ", "))
		sb.WriteString(") VALUES (")
		sb.WriteString(strings.Join(marks, ", "))
		sb.WriteString(")")
	case b.dialect == DialectMySQL:
		sb.WriteString(" () VALUES ()")
	default:
		sb.WriteString(" DEFAULT VALUES")
	}

	sb.WriteString(tail)

	if len(b.returning) > 0 {
		items := make([]string, len(b.returning))
		for i, s := range b.returning {
			items[i] = s.SelectionSQL(b.dialect)
		}
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(items, ", "))
	}

	args := make([]any, len(b.values))
	copy(args, b.values)
	return sb.String(), args, nil
}
