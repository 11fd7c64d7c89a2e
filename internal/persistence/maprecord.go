package persistence

import (
	"sort"

	"github.com/koustreak/datrec/internal/database"
)

// MapRecord is a Record for a table the caller has no Go type for. Its
// callbacks do nothing.
type MapRecord struct {
	NoCallbacks

	Table  string
	Policy database.ConflictPolicy

	// Key lists the primary key columns, if known.
	Key []string

	fields *Container
}

// NewMapRecord returns a record for table holding fields. Columns are
// encoded in sorted name order.
func NewMapRecord(table string, fields map[string]any) *MapRecord {
	r := &MapRecord{Table: table, fields: NewContainer()}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.fields.Set(name, fields[name])
	}
	return r
}

// Set stores v under column and returns r.
func (r *MapRecord) Set(column string, v any) *MapRecord {
	if r.fields == nil {
		r.fields = NewContainer()
	}
	r.fields.Set(column, v)
	return r
}

func (r *MapRecord) DatabaseTableName() string { return r.Table }

func (r *MapRecord) EncodeTo(c *Container) error {
	if r.fields == nil {
		return nil
	}
	values := r.fields.Values()
	for i, col := range r.fields.Columns() {
		c.Set(col, values[i])
	}
	return nil
}

func (r *MapRecord) PersistenceConflictPolicy() database.ConflictPolicy { return r.Policy }

func (r *MapRecord) PrimaryKey() []string { return r.Key }

var (
	_ Record               = (*MapRecord)(nil)
	_ ConflictPolicyRecord = (*MapRecord)(nil)
	_ KeyedRecord          = (*MapRecord)(nil)
)
