package drivers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := database.DefaultConfig(filepath.Join(t.TempDir(), "open.db"))

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, database.DialectSQLite, db.Dialect())
	require.NoError(t, db.Ping(context.Background()))
}

func TestOpen_Rejects(t *testing.T) {
	_, err := Open(context.Background(), &database.Config{Driver: database.DriverSQLite})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Open(context.Background(), &database.Config{Driver: "oracle", DSN: "x"})
	assert.True(t, errs.IsInvalidInput(err))
}
