package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/logger"
	"github.com/koustreak/datrec/internal/row"
)

// Insert runs the callbacks around a plain INSERT of rec. policy
// database.ConflictDefault selects the record's own policy.
//
// Under database.ConflictIgnore the statement may insert nothing; that is
// not an error, and the returned InsertionSuccess has RowsAffected == 0.
func Insert(ctx context.Context, db database.Executor, rec Record, policy database.ConflictPolicy) (InsertionSuccess, error) {
	inserted, _, err := insertWithCallbacks[struct{}](ctx, db, rec, policy, nil, nil)
	return inserted, err
}

// InsertAndFetch runs the callbacks around an INSERT ... RETURNING selection
// and returns what fetch reads from the returned rows. The cursor passed to
// fetch is drained and closed afterwards.
//
// It panics when selection is empty.
func InsertAndFetch[T any](
	ctx context.Context,
	db database.Executor,
	rec Record,
	policy database.ConflictPolicy,
	selection []database.Selectable,
	fetch func(*row.Cursor) (T, error),
) (T, error) {
	if len(selection) == 0 {
		errs.Panicf("insert into %q: RETURNING selection must not be empty", rec.DatabaseTableName())
	}
	if !db.Dialect().SupportsReturning() {
		var zero T
		return zero, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("%s does not support INSERT ... RETURNING", db.Dialect()))
	}

	_, fetched, err := insertWithCallbacks(ctx, db, rec, policy, selection, fetch)
	return fetched, err
}

// Components gives a selection builder access to the record being inserted.
type Components struct {
	Table   string
	Dialect database.Dialect

	columns []string
}

// Column returns a reference to one column of the table.
func (c Components) Column(name string) row.Column { return row.Column(name) }

// Columns returns the columns the record encodes, in encoding order.
func (c Components) Columns() []row.Column {
	out := make([]row.Column, len(c.columns))
	for i, name := range c.columns {
		out[i] = row.Column(name)
	}
	return out
}

// InsertAndFetchSelect is InsertAndFetch with the selection computed by
// selectFn. It panics when selectFn returns an empty selection.
func InsertAndFetchSelect[T any](
	ctx context.Context,
	db database.Executor,
	rec Record,
	policy database.ConflictPolicy,
	fetch func(*row.Cursor) (T, error),
	selectFn func(Components) []database.Selectable,
) (T, error) {
	preview := NewContainer()
	if err := rec.EncodeTo(preview); err != nil {
		var zero T
		return zero, err
	}

	selection := selectFn(Components{
		Table:   rec.DatabaseTableName(),
		Dialect: db.Dialect(),
		columns: preview.Columns(),
	})
	if len(selection) == 0 {
		errs.Panicf("insert into %q: selection builder returned no columns", rec.DatabaseTableName())
	}
	return InsertAndFetch(ctx, db, rec, policy, selection, fetch)
}

// InsertAndFetchRow inserts rec and returns a copy of the first returned
// row. With no selection every column is returned.
//
// When the statement returns no row, which happens under
// database.ConflictIgnore, the result is (nil, nil).
func InsertAndFetchRow(
	ctx context.Context,
	db database.Executor,
	rec Record,
	policy database.ConflictPolicy,
	selection ...database.Selectable,
) (*row.Row, error) {
	if len(selection) == 0 {
		selection = []database.Selectable{database.AllColumns}
	}
	return InsertAndFetch(ctx, db, rec, policy, selection, row.FetchOne)
}

// InsertAndFetchAs inserts rec and decodes the first returned row. Unlike
// InsertAndFetchRow, a missing row is an error: an ErrKindNotFound error is
// returned and DidInsert and DidSave do not run.
func InsertAndFetchAs[T any](
	ctx context.Context,
	db database.Executor,
	rec Record,
	policy database.ConflictPolicy,
	decode func(*row.Row) (T, error),
	selection ...database.Selectable,
) (T, error) {
	if len(selection) == 0 {
		selection = []database.Selectable{database.AllColumns}
	}
	return InsertAndFetch(ctx, db, rec, policy, selection, func(cur *row.Cursor) (T, error) {
		r, err := row.FetchOne(cur)
		if err != nil {
			var zero T
			return zero, err
		}
		if r == nil {
			var zero T
			return zero, recordNotFound(rec)
		}
		return decode(r)
	})
}

func recordNotFound(rec Record) error {
	msg := fmt.Sprintf("record not found in table %q", rec.DatabaseTableName())

	keyed, ok := rec.(KeyedRecord)
	if !ok || len(keyed.PrimaryKey()) == 0 {
		return errs.New(errs.ErrKindNotFound, msg)
	}
	c := NewContainer()
	if err := rec.EncodeTo(c); err != nil {
		return errs.New(errs.ErrKindNotFound, msg)
	}
	parts := make([]string, 0, len(keyed.PrimaryKey()))
	for _, col := range keyed.PrimaryKey() {
		v, _ := c.Get(col)
		parts = append(parts, fmt.Sprintf("%s:%v", col, v))
	}
	return errs.New(errs.ErrKindNotFound, fmt.Sprintf("%s for key [%s]", msg, strings.Join(parts, " ")))
}

// insertWithCallbacks drives the full hook sequence around one statement.
func insertWithCallbacks[T any](
	ctx context.Context,
	db database.Executor,
	rec Record,
	policy database.ConflictPolicy,
	selection []database.Selectable,
	fetch func(*row.Cursor) (T, error),
) (InsertionSuccess, T, error) {
	var (
		zero     T
		fetched  T
		inserted InsertionSuccess
	)

	if err := db.Dialect().CheckConflictPolicy(conflictPolicy(rec, policy)); err != nil {
		return InsertionSuccess{}, zero, err
	}
	if err := rec.WillSave(ctx, db); err != nil {
		return InsertionSuccess{}, zero, err
	}

	saveGuard := newGuard[PersistenceSuccess]("AroundSave")
	err := rec.AroundSave(ctx, db, func() (PersistenceSuccess, error) {
		return saveGuard.run(func() (PersistenceSuccess, error) {
			if err := rec.WillInsert(ctx, db); err != nil {
				return PersistenceSuccess{}, err
			}

			insertGuard := newGuard[InsertionSuccess]("AroundInsert")
			hookErr := rec.AroundInsert(ctx, db, func() (InsertionSuccess, error) {
				return insertGuard.run(func() (InsertionSuccess, error) {
					s, v, err := execute(ctx, db, rec, policy, selection, fetch)
					if err != nil {
						return InsertionSuccess{}, err
					}
					fetched = v
					return s, nil
				})
			})
			s, err := insertGuard.finish(hookErr)
			if err != nil {
				return PersistenceSuccess{}, err
			}

			if err := rec.DidInsert(ctx, s); err != nil {
				return PersistenceSuccess{}, err
			}
			inserted = s
			return NewPersistenceSuccess(s), nil
		})
	})
	saved, err := saveGuard.finish(err)
	if err != nil {
		return InsertionSuccess{}, zero, err
	}

	if err := rec.DidSave(ctx, saved); err != nil {
		return InsertionSuccess{}, zero, err
	}
	return inserted, fetched, nil
}

// execute builds and runs the INSERT. It is the action handed to
// AroundInsert.
func execute[T any](
	ctx context.Context,
	db database.Executor,
	rec Record,
	policy database.ConflictPolicy,
	selection []database.Selectable,
	fetch func(*row.Cursor) (T, error),
) (InsertionSuccess, T, error) {
	var zero T

	c := NewContainer()
	if err := rec.EncodeTo(c); err != nil {
		return InsertionSuccess{}, zero, err
	}

	table := rec.DatabaseTableName()
	policy = conflictPolicy(rec, policy)

	sql, args, err := database.Insert(table, db.Dialect()).
		Values(c.Columns(), c.Values()).
		OnConflict(policy).
		Returning(selection...).
		Build()
	if err != nil {
		return InsertionSuccess{}, zero, err
	}

	log := logger.FromContext(ctx)
	log.DebugWith("insert", map[string]any{
		"table":     table,
		"policy":    policy.String(),
		"returning": len(selection) > 0,
	})

	if len(selection) == 0 {
		res, err := db.Exec(ctx, sql, args...)
		if err != nil {
			return InsertionSuccess{}, zero, err
		}
		s := InsertionSuccess{RowsAffected: res.RowsAffected, Container: c}
		if res.HasLastInsertID && res.RowsAffected > 0 {
			s.RowID, s.HasRowID = res.LastInsertID, true
		}
		log.DebugWith("inserted", map[string]any{"table": table, "rows_affected": s.RowsAffected})
		return s, zero, nil
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return InsertionSuccess{}, zero, err
	}
	cur, err := row.NewCursor(rows)
	if err != nil {
		return InsertionSuccess{}, zero, err
	}
	defer cur.Close()

	v, err := fetch(cur)
	if err != nil {
		return InsertionSuccess{}, zero, err
	}
	if err := row.Drain(cur); err != nil {
		return InsertionSuccess{}, zero, err
	}

	s := InsertionSuccess{RowsAffected: int64(cur.Steps()), Container: c}
	if reporter, ok := db.(database.ChangeReporter); ok && s.RowsAffected > 0 {
		rowID, _, err := reporter.LastChanges(ctx)
		if err != nil {
			return InsertionSuccess{}, zero, err
		}
		s.RowID, s.HasRowID = rowID, true
	}
	log.DebugWith("inserted", map[string]any{"table": table, "rows_affected": s.RowsAffected})
	return s, v, nil
}
