package database

import (
	"context"
	"errors"
	"fmt"
)

// InTx runs fn inside a transaction on db. The transaction is committed when
// fn returns nil and rolled back otherwise. A panic inside fn rolls back and
// re-panics.
//
// InTx is a caller convenience: the persistence pipeline itself never begins,
// commits or rolls back anything.
func InTx(ctx context.Context, db DB, fn func(tx Executor) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit(ctx)
}
