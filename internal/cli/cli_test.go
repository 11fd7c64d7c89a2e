package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/database/sqlite"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "datrec", cmd.Use)

	for _, name := range []string{"serve", "insert"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestInsertCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	insertCmd, _, err := cmd.Find([]string{"insert"})
	require.NoError(t, err)

	for _, name := range []string{"table", "set", "conflict", "returning"} {
		assert.NotNil(t, insertCmd.Flags().Lookup(name), name)
	}
}

func TestParseAssignments(t *testing.T) {
	fields, err := parseAssignments([]string{"name=Arthur", "score=100", "ratio=0.5", "note=null", "eq=a=b", "word=Inf"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":  "Arthur",
		"score": int64(100),
		"ratio": 0.5,
		"note":  nil,
		"eq":    "a=b",
		"word":  "Inf",
	}, fields)

	for _, bad := range []string{"novalue", "=1", " =1"} {
		_, err := parseAssignments([]string{bad})
		assert.Error(t, err, bad)
	}
}

func setupDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.db")

	db, err := sqlite.New(context.Background(), database.DefaultConfig(dbPath))
	require.NoError(t, err)
	_, err = db.Exec(context.Background(),
		`CREATE TABLE player (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE, score INTEGER)`)
	require.NoError(t, err)
	db.Close()

	cfgPath := filepath.Join(dir, "datrec.yaml")
	cfg := fmt.Sprintf("database:\n  driver: sqlite\n  dsn: %s\nlogger:\n  level: error\n", dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInsertCommand(t *testing.T) {
	cfgPath := setupDB(t)

	out, err := runCLI(t, "insert", "--config", cfgPath, "--table", "player", "--set", "name=Arthur", "--set", "score=100")
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, float64(1), res["rows_affected"])
	assert.Equal(t, float64(1), res["row_id"])

	out, err = runCLI(t, "insert", "-c", cfgPath, "-t", "player", "-s", "name=Barbara", "--returning")
	require.NoError(t, err)
	res = nil
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, map[string]any{"id": float64(2), "name": "Barbara", "score": nil}, res["row"])
	assert.Equal(t, float64(1), res["rows_affected"])
	assert.Equal(t, float64(2), res["row_id"])

	out, err = runCLI(t, "insert", "-c", cfgPath, "-t", "player", "-s", "name=Arthur", "--conflict", "ignore", "--returning")
	require.NoError(t, err)
	res = nil
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, float64(0), res["rows_affected"])
	assert.NotContains(t, res, "row")
	assert.NotContains(t, res, "row_id")
}

func TestInsertCommandErrors(t *testing.T) {
	cfgPath := setupDB(t)

	_, err := runCLI(t, "insert", "-c", cfgPath, "-t", "player", "-s", "name=Arthur")
	require.NoError(t, err)

	_, err = runCLI(t, "insert", "-c", cfgPath, "-t", "player", "-s", "name=Arthur")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = runCLI(t, "insert", "-c", cfgPath, "-t", "player", "--conflict", "merge")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "insert", "-c", filepath.Join(t.TempDir(), "missing.yaml"), "-t", "player")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "insert", "-c", cfgPath)
	require.Error(t, err, "--table is required")
}
