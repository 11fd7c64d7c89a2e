package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/datrec/internal/database"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/logger"
	"github.com/koustreak/datrec/internal/persistence"
	"github.com/koustreak/datrec/internal/row"
	"github.com/koustreak/datrec/internal/schema"
)

const maxBodyBytes = 1 << 20

// requestRecord is the record built from a request body. It keeps the
// insertion outcome for the response.
type requestRecord struct {
	*persistence.MapRecord
	inserted persistence.InsertionSuccess
}

func (r *requestRecord) DidInsert(_ context.Context, s persistence.InsertionSuccess) error {
	r.inserted = s
	return nil
}

type insertResponse struct {
	RowsAffected int64      `json:"rows_affected"`
	RowID        *int64     `json:"row_id,omitempty"`
	Rows         []*row.Row `json:"rows,omitempty"`
	ArchiveKey   string     `json:"archive_key,omitempty"`
}

func (s *Server) insertRow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	table := chi.URLParam(r, "table")

	policy, err := database.ParseConflictPolicy(r.URL.Query().Get("conflict"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	selection := parseSelection(r.URL.Query().Get("returning"), s.db.Dialect())

	fields, err := decodeFields(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	layout, err := schema.Inspect(ctx, s.db, table)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec := &requestRecord{MapRecord: persistence.NewMapRecord(table, fields)}
	rec.Key = layout.PrimaryKey()

	var rows []*row.Row
	err = database.InTx(ctx, s.db, func(tx database.Executor) error {
		if len(selection) == 0 {
			_, err := persistence.Insert(ctx, tx, rec, policy)
			return err
		}
		var err error
		rows, err = persistence.InsertAndFetch(ctx, tx, rec, policy, selection, row.FetchAll)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := insertResponse{RowsAffected: rec.inserted.RowsAffected, Rows: rows}
	if rec.inserted.HasRowID {
		id := rec.inserted.RowID
		resp.RowID = &id
	}

	if s.archiver != nil {
		key, err := s.archiver.Archive(ctx, table, policy.String(), rec.inserted, rows)
		if err != nil {
			// The insert is committed; a failed archive does not undo it.
			logger.FromContext(ctx).ErrorWith("archive failed", err, map[string]any{"table": table})
		} else {
			resp.ArchiveKey = key
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) listRows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	table := chi.URLParam(r, "table")

	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if limit > s.maxPage {
		limit = s.maxPage
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	layout, err := schema.Inspect(ctx, s.db, table)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Pages are only stable over a total order.
	q := database.Select(table, s.db.Dialect()).Limit(limit)
	for _, col := range layout.PrimaryKey() {
		q = q.OrderBy(col, database.Asc)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	sql, args, err := q.Build()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rs, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cur, err := row.NewCursor(rs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var out []json.RawMessage
	err = row.ForEach(cur, func(rw *row.Row) error {
		data, err := rw.MarshalJSON()
		if err != nil {
			return err
		}
		out = append(out, data)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": out, "limit": limit, "offset": offset})
}

// parseSelection turns "id,name" into a RETURNING selection. "*" selects
// every column; an empty string selects nothing. Columns are aliased to
// themselves so every engine reports the bare name.
func parseSelection(s string, d database.Dialect) []database.Selectable {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if s == "*" {
		return []database.Selectable{database.AllColumns}
	}
	var sel []database.Selectable
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			q := row.Column(name).SelectionSQL(d)
			sel = append(sel, database.Expr(q+" AS "+q))
		}
	}
	return sel
}

// decodeFields reads one JSON object of column values. Numbers become int64
// when they are integral and float64 otherwise.
func decodeFields(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "request body must be a JSON object", err)
	}

	fields := make(map[string]any, len(raw))
	for col, v := range raw {
		switch v := v.(type) {
		case json.Number:
			if i, err := v.Int64(); err == nil {
				fields[col] = i
				continue
			}
			f, err := v.Float64()
			if err != nil {
				return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("column %q", col), err)
			}
			fields[col] = f
		case nil, string, bool:
			fields[col] = v
		default:
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("column %q: nested values are not supported", col))
		}
	}
	return fields, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}
