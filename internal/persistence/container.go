package persistence

import "github.com/koustreak/datrec/internal/row"

// Container holds the column values a record encodes itself into. Columns
// keep insertion order. Names are matched case-insensitively: setting "ID"
// after "id" replaces the value and keeps the original spelling.
type Container struct {
	columns []string
	values  []any
	index   map[string]int
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{index: make(map[string]int)}
}

// Set stores v under column.
func (c *Container) Set(column string, v any) {
	key := row.FoldName(column)
	if i, ok := c.index[key]; ok {
		c.values[i] = v
		return
	}
	c.index[key] = len(c.columns)
	c.columns = append(c.columns, column)
	c.values = append(c.values, v)
}

// Get returns the value stored under column.
func (c *Container) Get(column string) (any, bool) {
	i, ok := c.index[row.FoldName(column)]
	if !ok {
		return nil, false
	}
	return c.values[i], true
}

// Columns returns the column names in insertion order.
func (c *Container) Columns() []string { return append([]string(nil), c.columns...) }

// Values returns the values in column order.
func (c *Container) Values() []any { return append([]any(nil), c.values...) }

// Len returns the number of columns.
func (c *Container) Len() int { return len(c.columns) }
