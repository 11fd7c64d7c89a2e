package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/koustreak/datrec/internal/errs"
)

// mapError translates duckdb-go errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var duckErr *duckdb.Error
	if errors.As(err, &duckErr) {
		return errs.Wrap(classifyErrorType(duckErr.Type), fmt.Sprintf("%s: %s", msg, duckErr.Msg), err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

func classifyErrorType(t duckdb.ErrorType) errs.ErrKind {
	switch t {
	case duckdb.ErrorTypeConstraint, duckdb.ErrorTypeTransaction:
		return errs.ErrKindConflict
	case duckdb.ErrorTypeConversion, duckdb.ErrorTypeOutOfRange, duckdb.ErrorTypeMismatchType,
		duckdb.ErrorTypeInvalidInput:
		return errs.ErrKindInvalidInput
	case duckdb.ErrorTypeConnection, duckdb.ErrorTypeIO, duckdb.ErrorTypeNetwork:
		return errs.ErrKindConnectionFailed
	case duckdb.ErrorTypePermission:
		return errs.ErrKindPermissionDenied
	case duckdb.ErrorTypeInterrupt:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
