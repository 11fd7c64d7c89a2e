package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/datrec/internal/errs"
)

// PostgreSQL SQLSTATE classes
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection         = "08"
	pgClassDataException      = "22"
	pgClassIntegrity          = "23"
	pgClassAuthorization      = "28"
	pgClassSyntaxOrAccessRule = "42"
	pgClassOperatorIntervened = "57"

	pgErrInsufficientPrivilege = "42501"
	pgErrQueryCanceled         = "57014"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func classifySQLState(code string) errs.ErrKind {
	switch code {
	case pgErrInsufficientPrivilege:
		return errs.ErrKindPermissionDenied
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	}
	if len(code) < 2 {
		return errs.ErrKindQueryFailed
	}
	switch code[:2] {
	case pgClassConnection, pgClassOperatorIntervened:
		return errs.ErrKindConnectionFailed
	case pgClassIntegrity:
		return errs.ErrKindConflict
	case pgClassAuthorization:
		return errs.ErrKindPermissionDenied
	case pgClassDataException:
		return errs.ErrKindInvalidInput
	case pgClassSyntaxOrAccessRule:
		return errs.ErrKindQueryFailed
	}
	return errs.ErrKindQueryFailed
}
