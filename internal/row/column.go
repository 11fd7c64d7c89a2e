package row

import "github.com/koustreak/datrec/internal/database"

// ColumnRef is anything that names a column. Rows resolve every ColumnRef
// with the same case-insensitive leftmost-match rule as plain names.
type ColumnRef interface {
	ColumnName() string
}

// Column is a column identified by name. It can also be used in a
// RETURNING selection.
type Column string

func (c Column) ColumnName() string { return string(c) }

// SelectionSQL renders the column as a quoted identifier.
func (c Column) SelectionSQL(d database.Dialect) string {
	return d.QuoteIdent(string(c))
}

var (
	_ ColumnRef           = Column("")
	_ database.Selectable = Column("")
)
