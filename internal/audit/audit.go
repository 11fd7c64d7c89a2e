// Package audit archives snapshots of inserted rows into object storage.
//
// Each Archive call writes one JSON object under
//
//	<prefix>/<table>/<yyyy>/<mm>/<dd>/<uuidv7>.json
//
// UUIDv7 keys sort by creation time, so List returns snapshots oldest first.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/filestore"
	"github.com/koustreak/datrec/internal/logger"
	"github.com/koustreak/datrec/internal/persistence"
	"github.com/koustreak/datrec/internal/row"
)

const contentType = "application/json"

// Snapshot is one archived insert.
type Snapshot struct {
	ID           string            `json:"id"`
	Table        string            `json:"table"`
	Policy       string            `json:"policy"`
	RowsAffected int64             `json:"rows_affected"`
	RowID        *int64            `json:"row_id,omitempty"`
	CapturedAt   time.Time         `json:"captured_at"`
	Rows         []json.RawMessage `json:"rows"`
}

// Archiver writes snapshots to one bucket of a filestore.Store.
// It is safe for concurrent use when the store is.
type Archiver struct {
	store  filestore.Store
	bucket string
	prefix string
	now    func() time.Time
}

// New returns an Archiver writing to bucket under prefix. An empty prefix
// writes at the bucket root.
func New(store filestore.Store, bucket, prefix string) *Archiver {
	return &Archiver{store: store, bucket: bucket, prefix: prefix, now: time.Now}
}

// Archive stores the outcome of one insert together with copies of rows.
// Borrowed rows must still be current; they are copied before encoding.
// It returns the object key.
func (a *Archiver) Archive(ctx context.Context, table, policy string, inserted persistence.InsertionSuccess, rows []*row.Row) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnknown, "audit: generate id", err)
	}

	snap := Snapshot{
		ID:           id.String(),
		Table:        table,
		Policy:       policy,
		RowsAffected: inserted.RowsAffected,
		CapturedAt:   a.now().UTC(),
		Rows:         make([]json.RawMessage, 0, len(rows)),
	}
	if inserted.HasRowID {
		rowID := inserted.RowID
		snap.RowID = &rowID
	}
	for _, r := range rows {
		data, err := json.Marshal(r.Copy())
		if err != nil {
			return "", errs.Wrap(errs.ErrKindConversion, "audit: encode row", err)
		}
		snap.Rows = append(snap.Rows, data)
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindConversion, "audit: encode snapshot", err)
	}

	key := a.key(table, snap.CapturedAt, snap.ID)
	if _, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return "", err
	}

	logger.FromContext(ctx).DebugWith("archived", map[string]any{
		"table": table,
		"key":   key,
		"rows":  len(rows),
	})
	return key, nil
}

// Load reads the snapshot stored at key.
func (a *Archiver) Load(ctx context.Context, key string) (*Snapshot, error) {
	obj, err := a.store.GetObject(ctx, a.bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var snap Snapshot
	if err := json.NewDecoder(obj).Decode(&snap); err != nil {
		return nil, errs.Wrap(errs.ErrKindConversion, fmt.Sprintf("audit: decode %s", key), err)
	}
	return &snap, nil
}

// List returns the keys archived for table, oldest first. limit 0 means no
// limit.
func (a *Archiver) List(ctx context.Context, table string, limit int) ([]string, error) {
	objs, err := a.store.ListObjects(ctx, a.bucket, filestore.ListOptions{
		Prefix: path.Join(a.prefix, table) + "/",
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = o.Key
	}
	return keys, nil
}

func (a *Archiver) key(table string, at time.Time, id string) string {
	return path.Join(a.prefix, table, at.Format("2006/01/02"), id+".json")
}
