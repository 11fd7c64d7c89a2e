package duckdb

import (
	"errors"
	"testing"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/koustreak/datrec/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"constraint", &duckdb.Error{Type: duckdb.ErrorTypeConstraint, Msg: "Constraint Error: duplicate key"}, errs.ErrKindConflict},
		{"conversion", &duckdb.Error{Type: duckdb.ErrorTypeConversion}, errs.ErrKindInvalidInput},
		{"catalog", &duckdb.Error{Type: duckdb.ErrorTypeCatalog}, errs.ErrKindQueryFailed},
		{"io", &duckdb.Error{Type: duckdb.ErrorTypeIO}, errs.ErrKindConnectionFailed},
		{"interrupt", &duckdb.Error{Type: duckdb.ErrorTypeInterrupt}, errs.ErrKindTimeout},
		{"plain", errors.New("boom"), errs.ErrKindQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errs.KindOf(mapError(tt.err, "op")))
		})
	}
}
