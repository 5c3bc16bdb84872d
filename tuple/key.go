package tuple

import (
	"encoding/binary"
	"math"
	"strings"
)

const (
	escapeByte = 0x00
	escapedNul = 0xFF
	terminator = 0x01
)

// AppendKey appends the order preserving encoding of v to dst: comparing two
// encodings with bytes.Compare gives the same order as Compare on the
// values. Encodings of one type are prefix free. NULL has no key encoding.
// Negative zero encodes as zero and NaN has no encoding.
func AppendKey(dst []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, ErrNullValue
	case int64:
		return binary.BigEndian.AppendUint64(dst, uint64(val)^(1<<63)), nil
	case float64:
		if math.IsNaN(val) {
			return nil, ErrNaN
		}
		if val == 0 {
			val = 0
		}
		bits := math.Float64bits(val)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits ^= 1 << 63
		}
		return binary.BigEndian.AppendUint64(dst, bits), nil
	case bool:
		if val {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case string:
		return appendEscaped(dst, []byte(val)), nil
	case []byte:
		return appendEscaped(dst, val), nil
	}
	return nil, ErrTypeMismatch
}

func EncodeKey(v Value) ([]byte, error) {
	return AppendKey(nil, v)
}

func appendEscaped(dst, b []byte) []byte {
	for _, c := range b {
		if c == escapeByte {
			dst = append(dst, escapeByte, escapedNul)
			continue
		}
		dst = append(dst, c)
	}
	return append(dst, escapeByte, terminator)
}

// Compare orders two values of the same type. It never coerces: differing
// types fail with ErrTypeMismatch and a NULL operand fails with ErrNullValue.
func Compare(a, b Value) (int, error) {
	if a == nil || b == nil {
		return 0, ErrNullValue
	}

	switch x := a.(type) {
	case int64:
		y, ok := b.(int64)
		if !ok {
			return 0, ErrTypeMismatch
		}
		return cmpOrdered(x, y), nil
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, ErrTypeMismatch
		}
		return cmpOrdered(x, y), nil
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, ErrTypeMismatch
		}
		return strings.Compare(x, y), nil
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, ErrTypeMismatch
		}
		switch {
		case x == y:
			return 0, nil
		case !x:
			return -1, nil
		}
		return 1, nil
	case []byte:
		y, ok := b.([]byte)
		if !ok {
			return 0, ErrTypeMismatch
		}
		return strings.Compare(string(x), string(y)), nil
	}
	return 0, ErrTypeMismatch
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

const (
	tagNull byte = iota
	tagInt
	tagFloat
	tagBool
	tagString
	tagBlob
)

// Fingerprint identifies a row by its full content. Two rows have the same
// fingerprint exactly when they hold equal values of equal types in the same
// positions.
func Fingerprint(t Tuple) string {
	buf := make([]byte, 0, 16*len(t))
	for _, v := range t {
		var tag byte
		switch v.(type) {
		case nil:
			buf = append(buf, tagNull)
			continue
		case int64:
			tag = tagInt
		case float64:
			tag = tagFloat
		case bool:
			tag = tagBool
		case string:
			tag = tagString
		case []byte:
			tag = tagBlob
		default:
			continue
		}
		buf = append(buf, tag)
		buf, _ = AppendKey(buf, v)
	}
	return string(buf)
}
