package value

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/koustreak/datrec/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), "NULL"},
		{"zero value is null", Value{}, "NULL"},
		{"int", Int64(1), "1"},
		{"negative int", Int64(-42), "-42"},
		{"double", Double(1.1), "1.1"},
		{"whole double", Double(1), "1.0"},
		{"negative whole double", Double(-42), "-42.0"},
		{"large double", Double(1e21), "1e+21"},
		{"infinite double", Double(math.Inf(1)), "+Inf"},
		{"nan", Double(math.NaN()), "NaN"},
		{"text", Text("foo"), `"foo"`},
		{"text with quote", Text(`a"b`), `"a\"b"`},
		{"blob", Blob([]byte("SQLite")), "blob(6 bytes)"},
		{"empty blob", Blob(nil), "blob(0 bytes)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null null", Null(), Null(), true},
		{"same int", Int64(1), Int64(1), true},
		{"different int", Int64(1), Int64(2), false},
		{"int vs double", Int64(1), Double(1), false},
		{"nan", Double(math.NaN()), Double(math.NaN()), true},
		{"text", Text("a"), Text("a"), true},
		{"text case", Text("a"), Text("A"), false},
		{"blob", Blob([]byte{1, 2}), Blob([]byte{1, 2}), true},
		{"blob vs text", Blob([]byte("a")), Text("a"), false},
		{"null vs int", Null(), Int64(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestBlob_CopiesInput(t *testing.T) {
	src := []byte("abc")
	v := Blob(src)
	src[0] = 'z'

	b, ok := v.AsBlob()
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), b)
}

func TestClone_DetachesBlob(t *testing.T) {
	v := Blob([]byte("abc"))
	c := v.Clone()

	b, _ := v.AsBlob()
	b[0] = 'z'

	cb, _ := c.AsBlob()
	assert.Equal(t, []byte("abc"), cb)
}

func TestFromDriver(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		src  any
		want Value
	}{
		{"nil", nil, Null()},
		{"int64", int64(7), Int64(7)},
		{"int32", int32(7), Int64(7)},
		{"int", 7, Int64(7)},
		{"float64", 2.5, Double(2.5)},
		{"float32", float32(0.5), Double(0.5)},
		{"true", true, Int64(1)},
		{"false", false, Int64(0)},
		{"string", "hi", Text("hi")},
		{"bytes", []byte{0xff}, Blob([]byte{0xff})},
		{"time", ts, Text("2024-03-01T12:00:00Z")},
		{"value passthrough", Text("x"), Text("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromDriver(tt.src)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestFromDriver_Unsupported(t *testing.T) {
	_, err := FromDriver(struct{}{})
	require.Error(t, err)
	assert.True(t, errs.IsConversionFailed(err))
}

func TestValue_MarshalJSON(t *testing.T) {
	got, err := json.Marshal([]Value{Null(), Int64(3), Double(0.25), Text("x"), Blob([]byte("hi"))})
	require.NoError(t, err)
	assert.JSONEq(t, `[null, 3, 0.25, "x", "aGk="]`, string(got))
}

func TestValue_Driver(t *testing.T) {
	assert.Nil(t, Null().Driver())
	assert.Equal(t, int64(1), Int64(1).Driver())
	assert.Equal(t, 1.5, Double(1.5).Driver())
	assert.Equal(t, "s", Text("s").Driver())
	assert.Equal(t, []byte("b"), Blob([]byte("b")).Driver())
}
