package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"canceled", context.Canceled, errs.ErrKindTimeout},
		{"no rows", sql.ErrNoRows, errs.ErrKindNotFound},
		{"duplicate", &gomysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, errs.ErrKindConflict},
		{"fk child", &gomysql.MySQLError{Number: 1452}, errs.ErrKindConflict},
		{"not null", &gomysql.MySQLError{Number: 1048}, errs.ErrKindConflict},
		{"access denied", &gomysql.MySQLError{Number: 1045}, errs.ErrKindConnectionFailed},
		{"table access", &gomysql.MySQLError{Number: 1142}, errs.ErrKindPermissionDenied},
		{"too long", &gomysql.MySQLError{Number: 1406}, errs.ErrKindInvalidInput},
		{"lock wait", &gomysql.MySQLError{Number: 1205}, errs.ErrKindTimeout},
		{"syntax", &gomysql.MySQLError{Number: 1064}, errs.ErrKindQueryFailed},
		{"bad conn", errors.New("invalid connection"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "op")
			assert.Equal(t, tt.want, errs.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
