package row

import (
	"fmt"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/value"
)

// ScopeSpec names the columns [From, To) of a statement row as a scope.
// Children must lie within their parent's range. Positions are absolute
// column indexes in the statement, not relative to the parent.
type ScopeSpec struct {
	Name     string
	From, To int
	Children []ScopeSpec
}

// CursorOption configures NewCursor.
type CursorOption func(*cursorOptions)

type cursorOptions struct {
	scopes []ScopeSpec
}

// WithScopes attaches the given scopes to every row the cursor produces.
func WithScopes(specs ...ScopeSpec) CursorOption {
	return func(o *cursorOptions) {
		o.scopes = append(o.scopes, specs...)
	}
}

// scopeLayout is a validated ScopeSpec with its column layout resolved.
type scopeLayout struct {
	name     string
	from, to int
	cols     *columnSet
	children []scopeLayout
}

// Cursor steps through a result set one row at a time. It owns rows and
// closes it when iteration ends, fails or Close is called.
//
// A Cursor is not safe for concurrent use.
type Cursor struct {
	rows   database.Rows
	cols   *columnSet
	scopes []scopeLayout

	raw  []any
	dest []any
	buf  []value.Value

	cur    *Row
	gen    uint64
	steps  int
	err    error
	closed bool
}

// NewCursor wraps rows. On error rows is closed.
func NewCursor(rows database.Rows, opts ...CursorOption) (*Cursor, error) {
	var o cursorOptions
	for _, opt := range opts {
		opt(&o)
	}

	names, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	cols := newColumnSet(names)

	scopes, err := buildLayouts(cols, o.scopes, 0, cols.len())
	if err != nil {
		rows.Close()
		return nil, err
	}

	c := &Cursor{
		rows:   rows,
		cols:   cols,
		scopes: scopes,
		raw:    make([]any, len(names)),
		dest:   make([]any, len(names)),
		buf:    make([]value.Value, len(names)),
	}
	for i := range c.raw {
		c.dest[i] = &c.raw[i]
	}
	return c, nil
}

func buildLayouts(cols *columnSet, specs []ScopeSpec, lo, hi int) ([]scopeLayout, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(specs))
	out := make([]scopeLayout, 0, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, errs.New(errs.ErrKindInvalidInput, "scope name must not be empty")
		}
		if seen[s.Name] {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("duplicate scope %q", s.Name))
		}
		seen[s.Name] = true
		if s.From < lo || s.To > hi || s.From > s.To {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("scope %q range [%d, %d) outside [%d, %d)", s.Name, s.From, s.To, lo, hi))
		}
		children, err := buildLayouts(cols, s.Children, s.From, s.To)
		if err != nil {
			return nil, err
		}
		out = append(out, scopeLayout{
			name:     s.Name,
			from:     s.From,
			to:       s.To,
			cols:     cols.slice(s.From, s.To),
			children: children,
		})
	}
	return out, nil
}

// Next advances to the next row. Rows borrowed from the previous step become
// invalid. It returns false at the end of the result set or on error; check
// Err afterwards.
func (c *Cursor) Next() bool {
	c.gen++
	c.cur = nil
	if c.closed || c.err != nil {
		return false
	}

	if !c.rows.Next() {
		c.err = c.rows.Err()
		c.Close()
		return false
	}
	if err := c.rows.Scan(c.dest...); err != nil {
		c.err = err
		c.Close()
		return false
	}
	for i, raw := range c.raw {
		v, err := value.FromDriver(raw)
		if err != nil {
			c.err = errs.Wrap(errs.ErrKindConversion, fmt.Sprintf("column %q", c.cols.names[i]), err)
			c.Close()
			return false
		}
		c.buf[i] = v
		c.raw[i] = nil
	}

	c.steps++
	c.cur = c.borrow(c.cols, c.buf, c.scopes)
	return true
}

func (c *Cursor) borrow(cols *columnSet, values []value.Value, scopes []scopeLayout) *Row {
	r := &Row{cols: cols, values: values, cursor: c, gen: c.gen}
	if len(scopes) > 0 {
		r.scopes = make(map[string]*Row, len(scopes))
		for _, s := range scopes {
			r.scopes[s.name] = c.borrow(s.cols, c.buf[s.from:s.to], s.children)
		}
	}
	return r
}

// Row returns the current row. The row is borrowed: it is only valid until
// the next call to Next or Close. It panics when Next has not returned true.
func (c *Cursor) Row() *Row {
	if c.cur == nil {
		errs.Panicf("cursor has no current row")
	}
	return c.cur
}

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error { return c.err }

// Columns returns the statement's column names.
func (c *Cursor) Columns() []string {
	return append([]string(nil), c.cols.names...)
}

// Steps returns how many rows have been produced so far.
func (c *Cursor) Steps() int { return c.steps }

// Close releases the underlying rows and invalidates the current row. It is
// safe to call more than once.
func (c *Cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.cur = nil
	c.rows.Close()
	if c.err == nil {
		c.err = c.rows.Err()
	}
}

// FetchAll copies every remaining row and closes the cursor.
func FetchAll(c *Cursor) ([]*Row, error) {
	defer c.Close()

	var out []*Row
	for c.Next() {
		out = append(out, c.Row().Copy())
	}
	return out, c.Err()
}

// FetchOne copies the next row, or returns nil when there is none. The
// cursor is left open.
func FetchOne(c *Cursor) (*Row, error) {
	if !c.Next() {
		return nil, c.Err()
	}
	return c.Row().Copy(), nil
}

// ForEach calls fn with each remaining borrowed row. Iteration stops at the
// first error from fn, which is returned. The cursor is closed on return.
func ForEach(c *Cursor, fn func(*Row) error) error {
	defer c.Close()

	for c.Next() {
		if err := fn(c.Row()); err != nil {
			return err
		}
	}
	return c.Err()
}

// Drain steps over the remaining rows without reading them and closes the
// cursor.
func Drain(c *Cursor) error {
	defer c.Close()

	for c.Next() {
	}
	return c.Err()
}
