package value

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/koustreak/datrec/internal/errs"
)

// Conversion turns a non-NULL Value into a T. It returns an error built with
// Mismatch when v is outside T's domain. Conversions never see NULL: Convert
// handles absence before calling them.
type Conversion[T any] func(v Value) (T, error)

// Convert applies conv to v.
//
//   - v is NULL: zero T, ok=false, nil error (absence)
//   - conv accepts v: converted T, ok=true, nil error
//   - conv rejects v: zero T, ok=false, an ErrKindConversion error
func Convert[T any](v Value, conv Conversion[T]) (T, bool, error) {
	var zero T
	if v.IsNull() {
		return zero, false, nil
	}
	t, err := conv(v)
	if err != nil {
		if !errs.IsConversionFailed(err) {
			err = errs.Wrap(errs.ErrKindConversion, fmt.Sprintf("could not convert %s to %T", v, zero), err)
		}
		return zero, false, err
	}
	return t, true, nil
}

// Mismatch builds the conversion error for v and target type T.
func Mismatch[T any](v Value) error {
	var zero T
	return errs.New(errs.ErrKindConversion, fmt.Sprintf("could not convert %s to %T", v, zero))
}

// Int64Conv accepts integers, and doubles with no fractional part that fit
// in an int64.
func Int64Conv(v Value) (int64, error) {
	switch v.kind {
	case KindInt64:
		return v.i, nil
	case KindDouble:
		if v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < math.MaxInt64 {
			return int64(v.f), nil
		}
	}
	return 0, Mismatch[int64](v)
}

// IntConv is Int64Conv narrowed to int.
func IntConv(v Value) (int, error) {
	i, err := Int64Conv(v)
	if err != nil || int64(int(i)) != i {
		return 0, Mismatch[int](v)
	}
	return int(i), nil
}

// Float64Conv accepts doubles and integers.
func Float64Conv(v Value) (float64, error) {
	switch v.kind {
	case KindDouble:
		return v.f, nil
	case KindInt64:
		return float64(v.i), nil
	}
	return 0, Mismatch[float64](v)
}

// StringConv accepts text only.
func StringConv(v Value) (string, error) {
	if v.kind == KindText {
		return v.s, nil
	}
	return "", Mismatch[string](v)
}

// BytesConv accepts blobs and text. The result is always a fresh slice.
func BytesConv(v Value) ([]byte, error) {
	switch v.kind {
	case KindBlob:
		return slices.Clone(v.b), nil
	case KindText:
		return []byte(v.s), nil
	}
	return nil, Mismatch[[]byte](v)
}

// BoolConv follows SQL truthiness: any non-zero number is true.
func BoolConv(v Value) (bool, error) {
	switch v.kind {
	case KindInt64:
		return v.i != 0, nil
	case KindDouble:
		return v.f != 0, nil
	}
	return false, Mismatch[bool](v)
}

// TimeConv accepts RFC 3339 text, "YYYY-MM-DD HH:MM:SS" text, and integer
// unix seconds.
func TimeConv(v Value) (time.Time, error) {
	switch v.kind {
	case KindInt64:
		return time.Unix(v.i, 0).UTC(), nil
	case KindText:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v.s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, Mismatch[time.Time](v)
}

// Enum returns a conversion that accepts exactly the listed text values.
// Anything else, including text outside the list, is a conversion failure.
func Enum[T ~string](allowed ...T) Conversion[T] {
	return func(v Value) (T, error) {
		s, ok := v.AsText()
		if ok && slices.Contains(allowed, T(s)) {
			return T(s), nil
		}
		return "", errs.New(errs.ErrKindConversion, fmt.Sprintf("%s is not one of %v", v, allowed))
	}
}
