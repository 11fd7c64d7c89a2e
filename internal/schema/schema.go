// Package schema reads table layouts from the database catalog.
package schema

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/row"
	"github.com/koustreak/datrec/internal/value"
)

// Column describes a single column in a table.
type Column struct {
	Name string

	// KeyPosition is the 1-based position of the column in the primary key,
	// or 0 when the column is not part of it.
	KeyPosition int
}

// Table describes a table and its columns in declaration order.
type Table struct {
	Name    string
	Columns []Column
}

// PrimaryKey returns the primary key columns in key order.
func (t *Table) PrimaryKey() []string {
	var key []Column
	for _, c := range t.Columns {
		if c.KeyPosition > 0 {
			key = append(key, c)
		}
	}
	sort.SliceStable(key, func(i, j int) bool { return key[i].KeyPosition < key[j].KeyPosition })

	names := make([]string, len(key))
	for i, c := range key {
		names[i] = c.Name
	}
	return names
}

// Inspect reads the layout of table from db's catalog. It returns an
// ErrKindNotFound error when the table does not exist.
func Inspect(ctx context.Context, db database.Executor, table string) (*Table, error) {
	q, ok := columnQueries[db.Dialect()]
	if !ok {
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("schema: no catalog query for %s", db.Dialect()))
	}

	rows, err := db.Query(ctx, q, table)
	if err != nil {
		return nil, err
	}
	cur, err := row.NewCursor(rows)
	if err != nil {
		return nil, err
	}

	t := &Table{Name: table}
	err = row.ForEach(cur, func(r *row.Row) error {
		name, _, err := row.DecodeAt(r, 0, value.BytesConv)
		if err != nil {
			return err
		}
		pos, _, err := row.DecodeAt(r, 1, keyPosition)
		if err != nil {
			return err
		}
		t.Columns = append(t.Columns, Column{Name: string(name), KeyPosition: pos})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(t.Columns) == 0 {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("table %q does not exist", table))
	}
	return t, nil
}

// keyPosition also accepts the text form MySQL returns over the text
// protocol.
func keyPosition(v value.Value) (int, error) {
	if i, err := value.IntConv(v); err == nil {
		return i, nil
	}
	b, err := value.BytesConv(v)
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindConversion, "schema: key position", err)
	}
	return i, nil
}

// columnQueries return (column name, primary key position) for one table,
// ordered by column position.
var columnQueries = map[database.Dialect]string{
	database.DialectSQLite: `
		SELECT name, pk
		FROM pragma_table_info(?)
		ORDER BY cid`,

	database.DialectPostgres: `
		SELECT c.column_name::text,
		       COALESCE(k.ordinal_position, 0)::int
		FROM information_schema.columns c
		LEFT JOIN information_schema.table_constraints tc
		       ON tc.table_schema = c.table_schema
		      AND tc.table_name = c.table_name
		      AND tc.constraint_type = 'PRIMARY KEY'
		LEFT JOIN information_schema.key_column_usage k
		       ON k.constraint_name = tc.constraint_name
		      AND k.table_schema = tc.table_schema
		      AND k.column_name = c.column_name
		WHERE c.table_schema = current_schema()
		  AND c.table_name = $1
		ORDER BY c.ordinal_position`,

	database.DialectDuckDB: `
		SELECT c.column_name,
		       CAST(COALESCE(list_position(d.constraint_column_names, c.column_name), 0) AS INTEGER)
		FROM information_schema.columns c
		LEFT JOIN duckdb_constraints() d
		       ON d.table_name = c.table_name
		      AND d.schema_name = c.table_schema
		      AND d.constraint_type = 'PRIMARY KEY'
		WHERE c.table_schema = current_schema()
		  AND c.table_name = ?
		ORDER BY c.ordinal_position`,

	database.DialectMySQL: `
		SELECT c.COLUMN_NAME,
		       COALESCE(k.ORDINAL_POSITION, 0)
		FROM information_schema.COLUMNS c
		LEFT JOIN information_schema.KEY_COLUMN_USAGE k
		       ON k.TABLE_SCHEMA = c.TABLE_SCHEMA
		      AND k.TABLE_NAME = c.TABLE_NAME
		      AND k.COLUMN_NAME = c.COLUMN_NAME
		      AND k.CONSTRAINT_NAME = 'PRIMARY'
		WHERE c.TABLE_SCHEMA = DATABASE()
		  AND c.TABLE_NAME = ?
		ORDER BY c.ORDINAL_POSITION`,
}
