package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"no rows", pgx.ErrNoRows, errs.ErrKindNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, errs.ErrKindConflict},
		{"not null violation", &pgconn.PgError{Code: "23502"}, errs.ErrKindConflict},
		{"connection", &pgconn.PgError{Code: "08006"}, errs.ErrKindConnectionFailed},
		{"privilege", &pgconn.PgError{Code: "42501"}, errs.ErrKindPermissionDenied},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, errs.ErrKindQueryFailed},
		{"query canceled", &pgconn.PgError{Code: "57014"}, errs.ErrKindTimeout},
		{"bad text", &pgconn.PgError{Code: "22P02"}, errs.ErrKindInvalidInput},
		{"network", fmt.Errorf("dial tcp: refused"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "op")
			assert.Equal(t, tt.want, errs.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.Nil(t, mapError(nil, "op"))
}
