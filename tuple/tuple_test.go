package tuple

import (
	"encoding/binary"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizalta/toysql/catalog"
)

func profileSchema() *catalog.Schema {
	return &catalog.Schema{
		ID:   7,
		Name: "profiles",
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.TypeInt, IsPrimaryKey: true, IsNotNull: true},
			{Name: "handle", Type: catalog.TypeVarChar},
			{Name: "active", Type: catalog.TypeBoolean},
			{Name: "avatar", Type: catalog.TypeBlob},
			{Name: "score", Type: catalog.TypeFloat},
		},
	}
}

func TestRowEncodingPreservesValues(t *testing.T) {
	schema := profileSchema()

	rows := map[string]Tuple{
		"typical":      {int64(42), "ada", true, []byte{0xCA, 0xFE}, 97.5},
		"zero values":  {int64(0), "", false, []byte{}, 0.0},
		"extremes":     {int64(math.MinInt64), "ünïcode ✓", true, []byte{0}, math.MaxFloat64},
		"negative":     {int64(-1), "a,b;c", false, []byte{1, 2, 3}, -0.25},
		"all nullable": {int64(9), nil, nil, nil, nil},
		"mixed nulls":  {int64(10), "x", nil, []byte{7}, nil},
	}

	for name, row := range rows {
		t.Run(name, func(t *testing.T) {
			data, err := Serialize(row, schema)
			require.NoError(t, err)

			got, err := Deserialize(data, schema)
			require.NoError(t, err)
			assert.Equal(t, row, got)
		})
	}
}

func TestSerializeRejects(t *testing.T) {
	schema := profileSchema()
	good := Tuple{int64(1), "ada", true, []byte{1}, 1.5}

	with := func(pos int, v Value) Tuple {
		row := slices.Clone(good)
		row[pos] = v
		return row
	}

	tests := []struct {
		name string
		row  Tuple
		err  error
	}{
		{"null key", with(0, nil), ErrNotNull},
		{"short row", good[:4], ErrColumnCountMismatch},
		{"long row", append(slices.Clone(good), "extra"), ErrColumnCountMismatch},
		{"float for int", with(0, 1.0), ErrTypeMismatch},
		{"untyped int", with(0, 1), ErrTypeMismatch},
		{"int for varchar", with(1, int64(5)), ErrTypeMismatch},
		{"string for bool", with(2, "true"), ErrTypeMismatch},
		{"string for blob", with(3, "bytes"), ErrTypeMismatch},
		{"int for float", with(4, int64(2)), ErrTypeMismatch},
		{"nan", with(4, math.NaN()), ErrNaN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Serialize(tt.row, schema)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDeserializeDetectsCorruption(t *testing.T) {
	schema := profileSchema()
	valid, err := Serialize(Tuple{int64(123), "abc", true, []byte{1, 2, 3}, 12.3}, schema)
	require.NoError(t, err)

	const n = 5
	header := 2 + 2*n + 1
	offset := func(b []byte, i int) int {
		return int(binary.LittleEndian.Uint16(b[2+2*i:]))
	}
	setOffset := func(b []byte, i, v int) {
		binary.LittleEndian.PutUint16(b[2+2*i:], uint16(v))
	}
	mutate := func(f func(b []byte)) []byte {
		b := slices.Clone(valid)
		f(b)
		return b
	}

	tests := map[string][]byte{
		"one byte":         valid[:1],
		"truncated header": valid[:header-1],
		"truncated data":   valid[:len(valid)-1],
		"trailing byte":    append(slices.Clone(valid), 0),
		"zero columns":     mutate(func(b []byte) { b[0], b[1] = 0, 0 }),
		"column count":     mutate(func(b []byte) { b[0] = n - 1 }),
		"short int":        mutate(func(b []byte) { setOffset(b, 0, 4) }),
		"offsets reversed": mutate(func(b []byte) {
			o1, o2 := offset(b, 1), offset(b, 2)
			setOffset(b, 1, o2)
			setOffset(b, 2, o1)
		}),
		"bad boolean":    mutate(func(b []byte) { b[header+offset(b, 1)] = 2 }),
		"null with data": mutate(func(b []byte) { b[header-1] |= 1 }),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Deserialize(data, schema)
			assert.ErrorIs(t, err, ErrCorruptData)
		})
	}
}
