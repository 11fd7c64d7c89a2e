package schema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/database/sqlite"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/value"
)

func newDB(t *testing.T) *sqlite.Driver {
	t.Helper()
	db, err := sqlite.New(context.Background(), database.DefaultConfig(filepath.Join(t.TempDir(), "schema.db")))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	_, err := db.Exec(ctx, `CREATE TABLE membership (
		note TEXT,
		team_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		PRIMARY KEY (player_id, team_id)
	)`)
	require.NoError(t, err)

	table, err := Inspect(ctx, db, "membership")
	require.NoError(t, err)
	assert.Equal(t, "membership", table.Name)
	assert.Equal(t, []Column{
		{Name: "note"},
		{Name: "team_id", KeyPosition: 2},
		{Name: "player_id", KeyPosition: 1},
	}, table.Columns)
	assert.Equal(t, []string{"player_id", "team_id"}, table.PrimaryKey())
}

func TestInspect_NoPrimaryKey(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	_, err := db.Exec(ctx, `CREATE TABLE event (name TEXT)`)
	require.NoError(t, err)

	table, err := Inspect(ctx, db, "event")
	require.NoError(t, err)
	assert.Empty(t, table.PrimaryKey())
}

func TestInspect_MissingTable(t *testing.T) {
	_, err := Inspect(context.Background(), newDB(t), "nope")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Contains(t, err.Error(), `table "nope" does not exist`)
}

func TestKeyPosition(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want int
		err  bool
	}{
		{"integer", value.Int64(2), 2, false},
		{"mysql text", value.Blob([]byte("3")), 3, false},
		{"text", value.Text("0"), 0, false},
		{"garbage", value.Text("x"), 0, true},
		{"null", value.Null(), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyPosition(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
