// Package filestore defines the object storage interface the audit archive
// writes row snapshots to.
//
// Callers depend only on this package, never on a provider package:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := store.PutObject(ctx, cfg.Bucket, "players/0190.json", r, size, "application/json")
package filestore

import (
	"context"
	"io"
)

// Store is implemented by every object storage provider.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// EnsureBucket creates bucket unless it already exists.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject stores size bytes read from r at key inside bucket.
	// size may be -1 when unknown.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// ListObjects returns the objects in bucket that match opts, in key order.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)
}
