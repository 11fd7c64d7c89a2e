package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/datrec/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied   = 1044
	errAccessDenied     = 1045
	errNoDBSelected     = 1046
	errUnknownDatabase  = 1049
	errTooManyConns     = 1040
	errUserLimitReached = 1203
	errBadNull          = 1048
	errDuplicateEntry   = 1062
	errRowIsReferenced  = 1451
	errNoReferencedRow  = 1452
	errTableAccess      = 1142
	errColumnAccess     = 1143
	errDataTooLong      = 1406
	errTruncatedValue   = 1366
	errLockWaitTimeout  = 1205
	errQueryInterrupted = 1317
)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
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

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case errDBAccessDenied, errAccessDenied, errNoDBSelected, errUnknownDatabase,
		errTooManyConns, errUserLimitReached:
		return errs.ErrKindConnectionFailed
	case errDuplicateEntry, errRowIsReferenced, errNoReferencedRow, errBadNull:
		return errs.ErrKindConflict
	case errTableAccess, errColumnAccess:
		return errs.ErrKindPermissionDenied
	case errDataTooLong, errTruncatedValue:
		return errs.ErrKindInvalidInput
	case errLockWaitTimeout, errQueryInterrupted:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
