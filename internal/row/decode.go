package row

import (
	"fmt"

	"github.com/koustreak/datrec/internal/errs"
	"github.com/koustreak/datrec/internal/value"
)

// Decode converts the value of the column matching name. A missing column
// and a NULL value both yield ok == false with a nil error. A present value
// that conv rejects yields an ErrKindConversion error naming the column.
func Decode[T any](r *Row, name string, conv value.Conversion[T]) (T, bool, error) {
	v, found := r.Lookup(name)
	if !found {
		var zero T
		return zero, false, nil
	}
	return decodeValue(v, name, conv)
}

// DecodeAt converts the value at index i. It panics when i is out of range.
func DecodeAt[T any](r *Row, i int, conv value.Conversion[T]) (T, bool, error) {
	v := r.ValueAt(i)
	return decodeValue(v, r.cols.names[i], conv)
}

// DecodeColumn is Decode for a column reference.
func DecodeColumn[T any](r *Row, ref ColumnRef, conv value.Conversion[T]) (T, bool, error) {
	return Decode(r, ref.ColumnName(), conv)
}

func decodeValue[T any](v value.Value, column string, conv value.Conversion[T]) (T, bool, error) {
	out, ok, err := value.Convert(v, conv)
	if err != nil {
		return out, false, errs.Wrap(errs.ErrKindConversion, fmt.Sprintf("column %q", column), err)
	}
	return out, ok, nil
}
