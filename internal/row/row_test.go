package row

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/database/sqlite"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/value"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sqlite.Driver {
	t.Helper()

	db, err := sqlite.New(context.Background(), database.DefaultConfig(filepath.Join(t.TempDir(), "rows.db")))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func query(t *testing.T, db database.Executor, sql string, opts ...CursorOption) *Cursor {
	t.Helper()

	rows, err := db.Query(context.Background(), sql)
	require.NoError(t, err)
	cur, err := NewCursor(rows, opts...)
	require.NoError(t, err)
	t.Cleanup(cur.Close)
	return cur
}

func fetchOne(t *testing.T, db database.Executor, sql string) *Row {
	t.Helper()

	rows, err := FetchAll(query(t, db, sql))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func TestRow_IntsTable(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	_, err := db.Exec(ctx, "CREATE TABLE ints (a INTEGER, b INTEGER, c INTEGER)")
	require.NoError(t, err)
	_, err = db.Exec(ctx, "INSERT INTO ints (a,b,c) VALUES (0, 1, 2)")
	require.NoError(t, err)

	cur := query(t, db, "SELECT * FROM ints")
	fetched := 0
	for cur.Next() {
		fetched++
		r := cur.Row()
		assert.True(t, r.Borrowed())
		assert.Equal(t, 3, r.Count())
		assert.Equal(t, []string{"a", "b", "c"}, r.Columns())

		for i, name := range []string{"a", "b", "c"} {
			want := value.Int64(int64(i))
			assert.Equal(t, want, r.ValueAt(i))

			byName, ok := r.Lookup(name)
			require.True(t, ok)
			assert.Equal(t, want, byName)

			byColumn, ok := r.Value(Column(name))
			require.True(t, ok)
			assert.Equal(t, want, byColumn)

			n, ok, err := Decode(r, name, value.IntConv)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, i, n)
		}
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, 1, fetched)
	assert.Equal(t, 1, cur.Steps())
}

func TestRow_CaseInsensitiveLookup(t *testing.T) {
	r := fetchOne(t, openDB(t), "SELECT 'foo' AS nAmE, 1 AS foo")

	for _, name := range []string{"name", "NAME", "Name", "NaMe"} {
		assert.True(t, r.HasColumn(name), name)
		v, ok := r.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, value.Text("foo"), v)
	}
	for _, name := range []string{"foo", "Foo", "FOO"} {
		assert.True(t, r.HasColumn(name), name)
	}
}

func TestRow_LeftmostMatchWins(t *testing.T) {
	r := fetchOne(t, openDB(t), "SELECT 1 AS name, 2 AS NAME")

	v, ok := r.Lookup("NaMe")
	require.True(t, ok)
	assert.Equal(t, value.Int64(1), v)

	v, ok = r.Value(Column("NAME"))
	require.True(t, ok)
	assert.Equal(t, value.Int64(1), v)

	assert.Equal(t, value.Int64(2), r.ValueAt(1))
}

func TestRow_FoldsUnicodeNames(t *testing.T) {
	r := New([]string{"Straße", "ÉTÉ"}, []value.Value{value.Int64(1), value.Int64(2)})

	assert.True(t, r.HasColumn("STRASSE"))
	assert.True(t, r.HasColumn("été"))
	v, ok := r.Lookup("strasse")
	require.True(t, ok)
	assert.Equal(t, value.Int64(1), v)
}

func TestFoldName(t *testing.T) {
	for in, want := range map[string]string{
		"Name":    "name",
		"ID":      "id",
		"Straße":  "strasse",
		"STRASSE": "strasse",
		"ÉTÉ":     "été",
	} {
		assert.Equal(t, want, FoldName(in), in)
	}
}

func TestRow_MissingColumn(t *testing.T) {
	r := fetchOne(t, openDB(t), "SELECT 'foo' AS name")

	assert.False(t, r.HasColumn("missing"))
	v, ok := r.Lookup("missing")
	assert.False(t, ok)
	assert.True(t, v.IsNull())

	_, ok = r.Value(Column("missing"))
	assert.False(t, ok)

	s, ok, err := Decode(r, "missing", value.StringConv)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s)
}

func TestRow_ValueAtOutOfRangePanics(t *testing.T) {
	r := New([]string{"a"}, []value.Value{value.Int64(1)})

	for _, i := range []int{-1, 1, 5} {
		assert.PanicsWithError(t, fmt.Sprintf("[precondition] row index %d out of range [0, 1)", i), func() {
			r.ValueAt(i)
		})
	}
}

func TestRow_Decode(t *testing.T) {
	type color string
	colors := value.Enum[color]("red", "green")

	r := New(
		[]string{"good", "bad", "nothing"},
		[]value.Value{value.Text("red"), value.Text("purple"), value.Null()},
	)

	c, ok, err := Decode(r, "good", colors)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, color("red"), c)

	_, ok, err = Decode(r, "nothing", colors)
	require.NoError(t, err, "NULL is absence, not failure")
	assert.False(t, ok)

	_, ok, err = DecodeColumn(r, Column("BAD"), colors)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errs.IsConversionFailed(err))
	assert.Contains(t, err.Error(), `column "BAD"`)

	_, _, err = DecodeAt(r, 1, colors)
	assert.Contains(t, err.Error(), `column "bad"`)
}

func TestRow_Coalesce(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	_, err := db.Exec(ctx, "CREATE TABLE players (nickname TEXT, name TEXT)")
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO players VALUES ('Artie', 'Arthur'), (NULL, 'Jacob'), (NULL, NULL)`)
	require.NoError(t, err)

	rows, err := FetchAll(query(t, db, "SELECT * FROM players ORDER BY rowid"))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	want := []value.Value{value.Text("Artie"), value.Text("Jacob"), value.Null()}
	for i, r := range rows {
		assert.True(t, r.CoalesceNames().IsNull())
		assert.True(t, r.Coalesce().IsNull())
		assert.True(t, r.CoalesceNames("missing").IsNull())

		assert.Equal(t, want[i], r.CoalesceNames("nickname", "name"))
		assert.Equal(t, want[i], r.Coalesce(Column("nickname"), Column("name")))
		assert.Equal(t, want[i], r.CoalesceNames("missing", "NICKNAME", "Name"))
	}

	assert.Equal(t, value.Null(), rows[1].CoalesceNames("nickname"))
}

func TestRow_CopyIsDetached(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	_, err := db.Exec(ctx, "CREATE TABLE ints (a INTEGER, b BLOB)")
	require.NoError(t, err)
	_, err = db.Exec(ctx, "INSERT INTO ints VALUES (1, x'0102'), (2, x'0304')")
	require.NoError(t, err)

	cur := query(t, db, "SELECT * FROM ints ORDER BY a")
	require.True(t, cur.Next())
	first := cur.Row()
	copied := first.Copy()

	assert.False(t, copied.Borrowed())
	assert.True(t, first.Equal(copied))
	assert.True(t, Equal(copied, first))

	require.True(t, cur.Next())
	second := cur.Row().Copy()

	assert.Equal(t, value.Int64(1), copied.ValueAt(0))
	assert.Equal(t, value.Blob([]byte{1, 2}), copied.ValueAt(1))
	assert.False(t, copied.Equal(second))

	assert.Panics(t, func() { first.ValueAt(0) }, "borrowed row read after Next")

	assert.False(t, cur.Next())
	require.NoError(t, cur.Err())
	assert.Equal(t, value.Int64(2), second.ValueAt(0))
}

func TestRow_StaleBorrowPanicsWithPrecondition(t *testing.T) {
	cur := query(t, openDB(t), "SELECT 1 AS a")
	require.True(t, cur.Next())
	r := cur.Row()
	cur.Close()

	defer func() {
		p := recover()
		require.NotNil(t, p)
		assert.True(t, errs.IsPrecondition(p))
	}()
	r.Lookup("a")
}

func TestRow_Equality(t *testing.T) {
	a := New([]string{"a", "b"}, []value.Value{value.Int64(1), value.Text("x")})

	tests := []struct {
		name  string
		other *Row
		equal bool
	}{
		{"same", New([]string{"a", "b"}, []value.Value{value.Int64(1), value.Text("x")}), true},
		{"different value", New([]string{"a", "b"}, []value.Value{value.Int64(1), value.Text("y")}), false},
		{"different name case", New([]string{"A", "b"}, []value.Value{value.Int64(1), value.Text("x")}), false},
		{"different count", New([]string{"a"}, []value.Value{value.Int64(1)}), false},
		{"int vs double", New([]string{"a", "b"}, []value.Value{value.Double(1), value.Text("x")}), false},
		{"scopes ignored", a.WithScope("s", New(nil, nil)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, a.Equal(tt.other))
			assert.Equal(t, tt.equal, Equal(tt.other, a))
		})
	}

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}

func TestRow_Description(t *testing.T) {
	r := fetchOne(t, openDB(t),
		`SELECT NULL AS "null", 1 AS "int", 1.1 AS "double", 'foo' AS "string", x'666f6f626172' AS "data"`)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "row_description", []byte(r.String()))

	js, err := json.Marshal(r)
	require.NoError(t, err)
	g.Assert(t, "row_json", js)

	assert.Equal(t, "[]", New(nil, nil).String())
}

func TestRow_EmptyScopes(t *testing.T) {
	r := fetchOne(t, openDB(t), "SELECT 'foo' AS nAmE, 1 AS foo")

	assert.Zero(t, r.Scopes().Len())
	_, ok := r.Scopes().Get("missing")
	assert.False(t, ok)
	_, ok = r.ScopesTree().Get("missing")
	assert.False(t, ok)
	_, ok = r.ScopesTree().Find("missing")
	assert.False(t, ok)
}

func TestCursor_Scopes(t *testing.T) {
	cur := query(t, openDB(t),
		"SELECT 1 AS id, 'Reds' AS name, 7 AS id, 'Ann' AS name, 9 AS id, 'Bob' AS name",
		WithScopes(ScopeSpec{
			Name: "team", From: 0, To: 6,
			Children: []ScopeSpec{
				{Name: "captain", From: 2, To: 4},
				{Name: "coach", From: 4, To: 6},
			},
		}),
	)

	require.True(t, cur.Next())
	r := cur.Row()

	assert.Equal(t, []string{"team"}, r.Scopes().Names())
	team, ok := r.Scopes().Get("team")
	require.True(t, ok)
	assert.Equal(t, 6, team.Count())
	assert.Equal(t, []string{"captain", "coach"}, team.Scopes().Names())

	_, ok = r.Scopes().Get("Team")
	assert.False(t, ok, "scope names are case-sensitive")

	captain, ok := r.ScopesTree().Get("team.captain")
	require.True(t, ok)
	assert.Equal(t, "[id:7 name:\"Ann\"]", captain.String())

	coach, ok := r.ScopesTree().Find("coach")
	require.True(t, ok)
	name, _ := coach.Lookup("NAME")
	assert.Equal(t, value.Text("Bob"), name)

	_, ok = r.ScopesTree().Get("team.missing")
	assert.False(t, ok)
	_, ok = r.ScopesTree().Get("captain")
	assert.False(t, ok, "Get walks from the root")

	copied := r.Copy()
	require.False(t, cur.Next())

	captain, ok = copied.ScopesTree().Get("team.captain")
	require.True(t, ok)
	assert.False(t, captain.Borrowed())
	id, _ := captain.Lookup("id")
	assert.Equal(t, value.Int64(7), id)

	assert.Panics(t, func() { team.Count() })
}

func TestCursor_InvalidScopes(t *testing.T) {
	db := openDB(t)

	for name, spec := range map[string]ScopeSpec{
		"empty name":   {From: 0, To: 1},
		"past end":     {Name: "a", From: 0, To: 3},
		"inverted":     {Name: "a", From: 1, To: 0},
		"child escape": {Name: "a", From: 0, To: 1, Children: []ScopeSpec{{Name: "b", From: 0, To: 2}}},
	} {
		t.Run(name, func(t *testing.T) {
			rows, err := db.Query(context.Background(), "SELECT 1 AS x, 2 AS y")
			require.NoError(t, err)
			_, err = NewCursor(rows, WithScopes(spec))
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}

func TestCursor_RowWithoutNextPanics(t *testing.T) {
	cur := query(t, openDB(t), "SELECT 1")
	assert.Panics(t, func() { cur.Row() })
}

func TestFetchOne(t *testing.T) {
	db := openDB(t)

	cur := query(t, db, "SELECT 1 AS a UNION ALL SELECT 2")
	r, err := FetchOne(cur)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, value.Int64(1), r.ValueAt(0))
	require.NoError(t, Drain(cur))
	assert.Equal(t, 2, cur.Steps())

	cur = query(t, db, "SELECT 1 WHERE 0")
	r, err = FetchOne(cur)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestForEach_StopsOnError(t *testing.T) {
	cur := query(t, openDB(t), "SELECT 1 UNION ALL SELECT 2 UNION ALL SELECT 3")

	stop := errs.New(errs.ErrKindInvalidInput, "stop")
	seen := 0
	err := ForEach(cur, func(r *Row) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, seen)
	assert.False(t, cur.Next(), "cursor is closed")
}
