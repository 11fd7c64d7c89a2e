// Package persistence inserts records through an ordered set of lifecycle
// callbacks:
//
//	WillSave
//	AroundSave {
//	    WillInsert
//	    AroundInsert {
//	        INSERT [... RETURNING]
//	    }
//	    DidInsert
//	}
//	DidSave
//
// Every callback runs exactly once per successful call. The first failure
// stops the sequence and is returned unchanged. Nothing is rolled back here:
// wrap the call in database.InTx when the insert must be undone on failure.
package persistence

import (
	"context"

	"github.com/koustreak/datrec/internal/database"
)

// TableRecord names the table a record is stored in.
type TableRecord interface {
	DatabaseTableName() string
}

// EncodableRecord writes a record's column values into a Container.
type EncodableRecord interface {
	EncodeTo(c *Container) error
}

// Callbacks are the persistence lifecycle hooks. Embed NoCallbacks and
// override only the hooks you need.
//
// The around hooks receive an action that performs the enclosed work. They
// must call it exactly once and must not swallow its error. A hook that
// breaks this rule makes the whole call fail with an ErrKindCallbackMisuse
// error.
type Callbacks interface {
	WillSave(ctx context.Context, db database.Executor) error
	AroundSave(ctx context.Context, db database.Executor, save func() (PersistenceSuccess, error)) error
	DidSave(ctx context.Context, saved PersistenceSuccess) error

	WillInsert(ctx context.Context, db database.Executor) error
	AroundInsert(ctx context.Context, db database.Executor, insert func() (InsertionSuccess, error)) error
	DidInsert(ctx context.Context, inserted InsertionSuccess) error
}

// Record is everything the insert pipeline needs from a value.
type Record interface {
	TableRecord
	EncodableRecord
	Callbacks
}

// ConflictPolicyRecord declares the conflict policy used when a call passes
// database.ConflictDefault. Records that do not implement it use
// database.ConflictAbort.
type ConflictPolicyRecord interface {
	PersistenceConflictPolicy() database.ConflictPolicy
}

// KeyedRecord reports its primary key columns. It is only used to build
// not-found messages.
type KeyedRecord interface {
	PrimaryKey() []string
}

// NoCallbacks implements Callbacks with hooks that do nothing.
type NoCallbacks struct{}

func (NoCallbacks) WillSave(context.Context, database.Executor) error { return nil }

func (NoCallbacks) AroundSave(_ context.Context, _ database.Executor, save func() (PersistenceSuccess, error)) error {
	_, err := save()
	return err
}

func (NoCallbacks) DidSave(context.Context, PersistenceSuccess) error { return nil }

func (NoCallbacks) WillInsert(context.Context, database.Executor) error { return nil }

func (NoCallbacks) AroundInsert(_ context.Context, _ database.Executor, insert func() (InsertionSuccess, error)) error {
	_, err := insert()
	return err
}

func (NoCallbacks) DidInsert(context.Context, InsertionSuccess) error { return nil }

var _ Callbacks = NoCallbacks{}

func conflictPolicy(rec Record, explicit database.ConflictPolicy) database.ConflictPolicy {
	if explicit != database.ConflictDefault {
		return explicit
	}
	if r, ok := rec.(ConflictPolicyRecord); ok {
		if p := r.PersistenceConflictPolicy(); p != database.ConflictDefault {
			return p
		}
	}
	return database.ConflictAbort
}
