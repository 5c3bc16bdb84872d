package tuple

import (
	"bytes"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/rizalta/toysql/catalog"
)

func TestEncodeKeyOrder(t *testing.T) {
	tests := []struct {
		name   string
		values []Value
	}{
		{
			name:   "ints",
			values: []Value{int64(math.MinInt64), int64(-100), int64(-1), int64(0), int64(1), int64(5), int64(math.MaxInt64)},
		},
		{
			name:   "floats",
			values: []Value{math.Inf(-1), -1e10, -2.5, -0.5, 0.0, 0.25, 3.0, 1e300, math.Inf(1)},
		},
		{
			name:   "strings",
			values: []Value{"", "\x00", "\x00\x00", "a", "a\x00", "a\x00b", "ab", "b", "ba"},
		},
		{
			name:   "bools",
			values: []Value{false, true},
		},
		{
			name:   "blobs",
			values: []Value{[]byte{}, []byte{0}, []byte{0, 1}, []byte{1}, []byte{0xFF}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 1; i < len(tt.values); i++ {
				a, b := tt.values[i-1], tt.values[i]
				cmp, err := Compare(a, b)
				if err != nil {
					t.Fatalf("failed to compare %v and %v: %v", a, b, err)
				}
				if cmp >= 0 {
					t.Fatalf("expected %v < %v", a, b)
				}

				ka, err := EncodeKey(a)
				if err != nil {
					t.Fatalf("failed to encode %v: %v", a, err)
				}
				kb, err := EncodeKey(b)
				if err != nil {
					t.Fatalf("failed to encode %v: %v", b, err)
				}
				if bytes.Compare(ka, kb) >= 0 {
					t.Errorf("encoded %v (%x) should sort before %v (%x)", a, ka, b, kb)
				}
			}
		})
	}
}

func TestEncodeKeyPrefixFree(t *testing.T) {
	a, _ := EncodeKey("ab")
	b, _ := EncodeKey("abc")
	if bytes.HasPrefix(b, a) {
		t.Errorf("encoding of %q should not be a prefix of %q", "ab", "abc")
	}

	// any key sharing the encoded value sorts before value+0x00
	end := append(slices.Clone(a), 0x00)
	if bytes.Compare(a, end) >= 0 || bytes.Compare(b, end) < 0 {
		t.Errorf("inclusive end bound does not separate %q from %q", "ab", "abc")
	}
}

func TestEncodeKeyNull(t *testing.T) {
	if _, err := EncodeKey(nil); !errors.Is(err, ErrNullValue) {
		t.Errorf("expected %v, got %v", ErrNullValue, err)
	}
	if _, err := EncodeKey(42); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected %v for untyped int, got %v", ErrTypeMismatch, err)
	}
}

func TestEncodeKeyFloatZero(t *testing.T) {
	neg, err := EncodeKey(math.Copysign(0, -1))
	if err != nil {
		t.Fatalf("failed to encode -0: %v", err)
	}
	pos, err := EncodeKey(0.0)
	if err != nil {
		t.Fatalf("failed to encode 0: %v", err)
	}
	if !bytes.Equal(neg, pos) {
		t.Errorf("-0 and 0 compare equal but encode as %x and %x", neg, pos)
	}

	if _, err := EncodeKey(math.NaN()); !errors.Is(err, ErrNaN) {
		t.Errorf("expected %v, got %v", ErrNaN, err)
	}
}

func TestCompareErrors(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		err  error
	}{
		{name: "null left", a: nil, b: int64(1), err: ErrNullValue},
		{name: "null right", a: "a", b: nil, err: ErrNullValue},
		{name: "int and float", a: int64(1), b: 1.0, err: ErrTypeMismatch},
		{name: "string and int", a: "1", b: int64(1), err: ErrTypeMismatch},
		{name: "bool and string", a: true, b: "true", err: ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compare(tt.a, tt.b); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	base := Tuple{int64(1), "a", nil, true}

	if Fingerprint(base) != Fingerprint(Tuple{int64(1), "a", nil, true}) {
		t.Errorf("equal rows should share a fingerprint")
	}

	different := []Tuple{
		{int64(2), "a", nil, true},
		{int64(1), "a", "", true},
		{int64(1), "a", nil, false},
		{int64(1), "a", nil},
		{"1", "a", nil, true},
		{int64(1), []byte("a"), nil, true},
	}
	for _, d := range different {
		if Fingerprint(base) == Fingerprint(d) {
			t.Errorf("rows %v and %v should not share a fingerprint", base, d)
		}
	}

	// string boundaries are unambiguous
	if Fingerprint(Tuple{"ab", "c"}) == Fingerprint(Tuple{"a", "bc"}) {
		t.Errorf("fingerprint should not depend on concatenated content only")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		field    string
		typ      catalog.DataType
		expected Value
		err      error
	}{
		{field: "42", typ: catalog.TypeInt, expected: int64(42)},
		{field: " -7 ", typ: catalog.TypeInt, expected: int64(-7)},
		{field: "4.5", typ: catalog.TypeFloat, expected: 4.5},
		{field: "true", typ: catalog.TypeBoolean, expected: true},
		{field: "hello", typ: catalog.TypeVarChar, expected: "hello"},
		{field: "", typ: catalog.TypeInt, expected: nil},
		{field: "NULL", typ: catalog.TypeVarChar, expected: nil},
		{field: "x", typ: catalog.TypeInt, err: ErrTypeMismatch},
		{field: "maybe", typ: catalog.TypeBoolean, err: ErrTypeMismatch},
		{field: "NaN", typ: catalog.TypeFloat, err: ErrNaN},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			v, err := ParseValue(tt.field, tt.typ)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if tt.err == nil && v != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, v)
			}
		})
	}
}
