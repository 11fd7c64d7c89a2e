// Package row provides Row, an immutable view of one result row, and Cursor,
// which steps a statement and produces them.
//
// Column lookup by name is case-insensitive: "name", "NAME" and "NaMe" all
// resolve to the leftmost column whose folded name matches. A missing column
// is not an error, it yields (Null, false).
//
// A Row obtained from Cursor.Row is borrowed: it aliases the cursor's
// per-step buffer and is only valid until the next call to Next or Close.
// Reading a borrowed Row after that panics. Call Copy to keep a Row past the
// current step.
package row

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/value"
)

// Row is an ordered set of (column, value) pairs plus named child rows
// called scopes. Rows are never mutated once built.
type Row struct {
	cols   *columnSet
	values []value.Value
	scopes map[string]*Row

	// Set on borrowed rows only.
	cursor *Cursor
	gen    uint64
}

// New builds an owned Row. It panics when len(columns) != len(values).
func New(columns []string, values []value.Value) *Row {
	if len(columns) != len(values) {
		errs.Panicf("row: %d columns but %d values", len(columns), len(values))
	}
	vals := make([]value.Value, len(values))
	for i, v := range values {
		vals[i] = v.Clone()
	}
	return &Row{cols: newColumnSet(columns), values: vals}
}

// WithScope returns a row identical to r with child attached under name.
// An existing scope with the same name is replaced.
func (r *Row) WithScope(name string, child *Row) *Row {
	r.check()
	out := *r
	out.scopes = make(map[string]*Row, len(r.scopes)+1)
	for k, v := range r.scopes {
		out.scopes[k] = v
	}
	out.scopes[name] = child
	return &out
}

// Borrowed reports whether r aliases a cursor buffer.
func (r *Row) Borrowed() bool { return r.cursor != nil }

func (r *Row) check() {
	if r.cursor != nil && r.cursor.gen != r.gen {
		errs.Panicf("row used after its cursor advanced; call Copy to keep it")
	}
}

// Count returns the number of columns.
func (r *Row) Count() int {
	r.check()
	return len(r.values)
}

// Columns returns the column names in order.
func (r *Row) Columns() []string {
	r.check()
	return append([]string(nil), r.cols.names...)
}

// Values returns detached copies of the values in column order.
func (r *Row) Values() []value.Value {
	r.check()
	out := make([]value.Value, len(r.values))
	for i, v := range r.values {
		out[i] = v.Clone()
	}
	return out
}

// HasColumn reports whether a column matches name, ignoring case.
func (r *Row) HasColumn(name string) bool {
	r.check()
	_, ok := r.cols.position(name)
	return ok
}

// ValueAt returns the value at index i. It panics unless 0 <= i < Count().
func (r *Row) ValueAt(i int) value.Value {
	r.check()
	if i < 0 || i >= len(r.values) {
		errs.Panicf("row index %d out of range [0, %d)", i, len(r.values))
	}
	return r.values[i]
}

// Lookup returns the value of the leftmost column matching name, ignoring
// case. The boolean is false when no column matches.
func (r *Row) Lookup(name string) (value.Value, bool) {
	r.check()
	i, ok := r.cols.position(name)
	if !ok {
		return value.Null(), false
	}
	return r.values[i], true
}

// Value is Lookup for a column reference.
func (r *Row) Value(ref ColumnRef) (value.Value, bool) {
	return r.Lookup(ref.ColumnName())
}

// Coalesce returns the first non-null value among refs. Missing columns are
// skipped. It returns Null when refs is empty or nothing matches.
func (r *Row) Coalesce(refs ...ColumnRef) value.Value {
	for _, ref := range refs {
		if v, ok := r.Value(ref); ok && !v.IsNull() {
			return v
		}
	}
	return value.Null()
}

// CoalesceNames is Coalesce for plain column names.
func (r *Row) CoalesceNames(names ...string) value.Value {
	refs := make([]ColumnRef, len(names))
	for i, name := range names {
		refs[i] = Column(name)
	}
	return r.Coalesce(refs...)
}

// Copy returns an owned row with the same columns, values and scope tree.
// The copy stays valid after the originating cursor moves on.
func (r *Row) Copy() *Row {
	r.check()
	vals := make([]value.Value, len(r.values))
	for i, v := range r.values {
		vals[i] = v.Clone()
	}
	out := &Row{cols: r.cols, values: vals}
	if len(r.scopes) > 0 {
		out.scopes = make(map[string]*Row, len(r.scopes))
		for name, child := range r.scopes {
			out.scopes[name] = child.Copy()
		}
	}
	return out
}

// Equal reports whether r and o have the same column names and values in
// the same order. Scopes are not compared.
func (r *Row) Equal(o *Row) bool {
	r.check()
	o.check()
	if len(r.values) != len(o.values) {
		return false
	}
	for i := range r.values {
		if r.cols.names[i] != o.cols.names[i] || !r.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

// Equal is Row.Equal that also accepts nil rows.
func Equal(a, b *Row) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

// String renders the row as [name:value ...].
func (r *Row) String() string {
	r.check()
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range r.values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(r.cols.names[i])
		sb.WriteByte(':')
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// MarshalJSON encodes the row as a JSON object with keys in column order.
func (r *Row) MarshalJSON() ([]byte, error) {
	r.check()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.cols.names[i])
		if err != nil {
			return nil, err
		}
		val, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Scopes returns the direct child rows of r.
func (r *Row) Scopes() Scopes {
	r.check()
	return Scopes{m: r.scopes}
}

// ScopesTree returns a view that resolves scopes at any depth.
func (r *Row) ScopesTree() ScopeTree {
	r.check()
	return ScopeTree{root: r}
}

// Scopes maps scope names to child rows. Names are case-sensitive.
type Scopes struct {
	m map[string]*Row
}

// Get returns the child row registered under name.
func (s Scopes) Get(name string) (*Row, bool) {
	child, ok := s.m[name]
	return child, ok
}

// Len returns the number of scopes.
func (s Scopes) Len() int { return len(s.m) }

// Names returns the scope names in sorted order.
func (s Scopes) Names() []string {
	names := make([]string, 0, len(s.m))
	for name := range s.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScopeTree resolves nested scopes.
type ScopeTree struct {
	root *Row
}

// Get walks a dotted path such as "team.captain" one scope at a time.
// Any missing segment yields (nil, false).
func (t ScopeTree) Get(path string) (*Row, bool) {
	if path == "" {
		return nil, false
	}
	cur := t.root
	for _, segment := range strings.Split(path, ".") {
		child, ok := cur.scopes[segment]
		if !ok {
			return nil, false
		}
		cur = child
	}
	return cur, true
}

// Find searches the whole tree breadth-first for a scope called name and
// returns the shallowest match. Siblings are visited in sorted name order.
func (t ScopeTree) Find(name string) (*Row, bool) {
	queue := []*Row{t.root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if child, ok := cur.scopes[name]; ok {
			return child, true
		}
		for _, n := range (Scopes{m: cur.scopes}).Names() {
			queue = append(queue, cur.scopes[n])
		}
	}
	return nil, false
}
