// Package value defines the database value union every row is made of.
//
// A Value is one of NULL, a 64-bit integer, a double, text or a blob. It is
// immutable: the blob constructor copies its input and AsBlob hands out the
// internal slice read-only by convention (use Clone to detach it).
package value

import (
	"bytes"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/datrec/internal/errs"
)

// Kind identifies the variant stored in a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt64
	KindDouble
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return "null"
	}
}

// Value is a single database value. The zero Value is NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// Null returns the NULL value.
func Null() Value { return Value{} }

// Int64 returns an integer value.
func Int64(i int64) Value { return Value{kind: KindInt64, i: i} }

// Double returns a floating point value.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Blob returns a blob value holding a copy of b. A nil b is an empty blob,
// not NULL.
func Blob(b []byte) Value {
	c := make([]byte, len(b))
	copy(c, b)
	return Value{kind: KindBlob, b: c}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt64() (int64, bool)    { return v.i, v.kind == KindInt64 }
func (v Value) AsDouble() (float64, bool) { return v.f, v.kind == KindDouble }
func (v Value) AsText() (string, bool)    { return v.s, v.kind == KindText }

// AsBlob returns the blob bytes. The slice must not be modified.
func (v Value) AsBlob() ([]byte, bool) { return v.b, v.kind == KindBlob }

// Equal reports structural equality. Values of different kinds are never
// equal, so Int64(1) and Double(1) differ.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt64:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindText:
		return v.s == o.s
	case KindBlob:
		return bytes.Equal(v.b, o.b)
	default:
		return true
	}
}

// Clone returns a Value that shares no memory with v.
func (v Value) Clone() Value {
	if v.kind == KindBlob {
		return Blob(v.b)
	}
	return v
}

// String renders the value the way row descriptions show it:
// NULL, 1, 1.0, 1.1, "foo", blob(6 bytes).
func (v Value) String() string {
	switch v.kind {
	case KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	case KindText:
		return strconv.Quote(v.s)
	case KindBlob:
		return fmt.Sprintf("blob(%d bytes)", len(v.b))
	default:
		return "NULL"
	}
}

// Driver returns v as a database/sql driver value.
func (v Value) Driver() any {
	switch v.kind {
	case KindInt64:
		return v.i
	case KindDouble:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		return v.b
	default:
		return nil
	}
}

// Value implements driver.Valuer so a Value can be passed as a statement
// argument directly.
func (v Value) Value() (driver.Value, error) {
	return v.Driver(), nil
}

// MarshalJSON encodes NULL as null, numbers as numbers, text as a string
// and blobs as base64 strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt64:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindDouble:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(strconv.FormatFloat(v.f, 'g', -1, 64))
		}
		return json.Marshal(v.f)
	case KindText:
		return json.Marshal(v.s)
	case KindBlob:
		return json.Marshal(base64.StdEncoding.EncodeToString(v.b))
	default:
		return []byte("null"), nil
	}
}

// FromDriver converts a value produced by a database driver into a Value.
func FromDriver(src any) (Value, error) {
	switch x := src.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case int64:
		return Int64(x), nil
	case int:
		return Int64(int64(x)), nil
	case int32:
		return Int64(int64(x)), nil
	case int16:
		return Int64(int64(x)), nil
	case int8:
		return Int64(int64(x)), nil
	case uint8:
		return Int64(int64(x)), nil
	case uint16:
		return Int64(int64(x)), nil
	case uint32:
		return Int64(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Text(strconv.FormatUint(x, 10)), nil
		}
		return Int64(int64(x)), nil
	case float64:
		return Double(x), nil
	case float32:
		return Double(float64(x)), nil
	case bool:
		if x {
			return Int64(1), nil
		}
		return Int64(0), nil
	case string:
		return Text(x), nil
	case []byte:
		return Blob(x), nil
	case time.Time:
		return Text(x.Format(time.RFC3339Nano)), nil
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return Null(), errs.Wrap(errs.ErrKindConversion, "driver valuer failed", err)
		}
		if _, again := inner.(driver.Valuer); again {
			break
		}
		return FromDriver(inner)
	case fmt.Stringer:
		return Text(x.String()), nil
	}
	return Null(), errs.New(errs.ErrKindConversion, fmt.Sprintf("unsupported driver value of type %T", src))
}
