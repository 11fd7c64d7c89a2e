package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/database/drivers"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/logger"
	"github.com/koustreak/datrec/internal/persistence"
	"github.com/koustreak/datrec/internal/row"
)

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	*RootOptions
	Table     string
	Set       []string
	Conflict  string
	Returning bool
}

// cliRecord keeps the insertion outcome for the printed result.
type cliRecord struct {
	*persistence.MapRecord
	inserted persistence.InsertionSuccess
}

func (r *cliRecord) DidInsert(_ context.Context, s persistence.InsertionSuccess) error {
	r.inserted = s
	return nil
}

type insertResult struct {
	RowsAffected int64    `json:"rows_affected"`
	RowID        *int64   `json:"row_id,omitempty"`
	Row          *row.Row `json:"row,omitempty"`
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert one row",
		Long: `Insert one row built from --set column=value pairs.

Values that parse as integers or floats are sent as numbers, "null" as NULL,
everything else as text.

Example:
  datrec insert --table player --set name=Arthur --set score=100
  datrec insert --table player --set name=Arthur --conflict ignore --returning`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "table to insert into (required)")
	cmd.Flags().StringArrayVarP(&opts.Set, "set", "s", nil, "column=value, repeatable")
	cmd.Flags().StringVar(&opts.Conflict, "conflict", "", "conflict policy: abort, rollback, fail, ignore, replace")
	cmd.Flags().BoolVar(&opts.Returning, "returning", false, "print the inserted row")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runInsert(ctx context.Context, opts *InsertOptions, out io.Writer) error {
	policy, err := database.ParseConflictPolicy(opts.Conflict)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --conflict", err)
	}
	fields, err := parseAssignments(opts.Set)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --set", err)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(&cfg.Logger)
	ctx = log.WithContext(ctx)

	db, err := drivers.Open(ctx, &cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	rec := &cliRecord{MapRecord: persistence.NewMapRecord(opts.Table, fields)}

	var result insertResult
	err = database.InTx(ctx, db, func(tx database.Executor) error {
		if !opts.Returning {
			_, err := persistence.Insert(ctx, tx, rec, policy)
			return err
		}
		r, err := persistence.InsertAndFetch(ctx, tx, rec, policy,
			[]database.Selectable{database.AllColumns}, row.FetchOne)
		result.Row = r
		return err
	})
	if err != nil {
		return WrapExitError(ExitFailure, "insert failed", err)
	}
	result.RowsAffected = rec.inserted.RowsAffected
	if rec.inserted.HasRowID {
		id := rec.inserted.RowID
		result.RowID = &id
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// parseAssignments turns ["name=Arthur", "score=100"] into column values.
func parseAssignments(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		col, raw, ok := strings.Cut(pair, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("%q is not column=value", pair))
		}
		fields[col] = parseScalar(raw)
	}
	return fields, nil
}

func parseScalar(s string) any {
	if s == "null" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}
