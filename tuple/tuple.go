// Package tuple encodes rows and the values they hold. A nil Value is NULL.
package tuple

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/rizalta/toysql/catalog"
)

type Value any

type Tuple []Value

var (
	ErrColumnCountMismatch = errors.New("tuple: number of values mismatch with schema column count")
	ErrTypeMismatch        = errors.New("tuple: value type mismatch with schema type")
	ErrCorruptData         = errors.New("tuple: data is corrupt or malformed")
	ErrNullValue           = errors.New("tuple: value is null")
	ErrNotNull             = errors.New("tuple: null value in not null column")
	ErrNaN                 = errors.New("tuple: float value is NaN")
)

// CheckType reports whether v can be stored in a column of type t. NULL
// fits every type.
func CheckType(v Value, t catalog.DataType) error {
	if v == nil {
		return nil
	}

	ok := false
	switch t {
	case catalog.TypeInt:
		_, ok = v.(int64)
	case catalog.TypeVarChar:
		_, ok = v.(string)
	case catalog.TypeBoolean:
		_, ok = v.(bool)
	case catalog.TypeBlob:
		_, ok = v.([]byte)
	case catalog.TypeFloat:
		_, ok = v.(float64)
	}
	if !ok {
		return ErrTypeMismatch
	}
	return nil
}

func encodeValue(value Value, colType catalog.DataType) ([]byte, error) {
	if err := CheckType(value, colType); err != nil {
		return nil, err
	}

	switch colType {
	case catalog.TypeInt:
		encoded := make([]byte, 8)
		binary.LittleEndian.PutUint64(encoded, uint64(value.(int64)))
		return encoded, nil
	case catalog.TypeVarChar:
		return []byte(value.(string)), nil
	case catalog.TypeBoolean:
		if value.(bool) {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case catalog.TypeBlob:
		return value.([]byte), nil
	case catalog.TypeFloat:
		f := value.(float64)
		if math.IsNaN(f) {
			return nil, ErrNaN
		}
		encoded := make([]byte, 8)
		binary.LittleEndian.PutUint64(encoded, math.Float64bits(f))
		return encoded, nil
	}

	return nil, ErrTypeMismatch
}

// Serialize lays a row out as: value count, end offset of every value, a
// null bitmap, then the value bytes. NULL values occupy no data bytes.
func Serialize(tuple Tuple, schema *catalog.Schema) ([]byte, error) {
	numValues := len(tuple)
	if numValues != len(schema.Columns) {
		return nil, ErrColumnCountMismatch
	}

	bitmapSize := (numValues + 7) / 8
	bitmap := make([]byte, bitmapSize)
	encodedValues := make([][]byte, numValues)
	dataSize := 0
	for i, value := range tuple {
		column := schema.Columns[i]
		if value == nil {
			if column.IsNotNull {
				return nil, ErrNotNull
			}
			bitmap[i/8] |= 1 << (i % 8)
			continue
		}

		encoded, err := encodeValue(value, column.Type)
		if err != nil {
			return nil, err
		}

		dataSize += len(encoded)
		encodedValues[i] = encoded
	}

	headerSize := 2 + (2 * numValues) + bitmapSize
	result := make([]byte, headerSize+dataSize)

	binary.LittleEndian.PutUint16(result[0:], uint16(numValues))
	currentOffset := 0
	for i, valBytes := range encodedValues {
		currentOffset += len(valBytes)
		offsetPosition := 2 + (2 * i)
		binary.LittleEndian.PutUint16(result[offsetPosition:], uint16(currentOffset))
	}
	copy(result[2+2*numValues:], bitmap)

	dataOffset := headerSize
	for _, valBytes := range encodedValues {
		copy(result[dataOffset:], valBytes)
		dataOffset += len(valBytes)
	}

	return result, nil
}

func decodeValue(valueBytes []byte, colType catalog.DataType) (Value, error) {
	switch colType {
	case catalog.TypeInt:
		if len(valueBytes) != 8 {
			return nil, ErrCorruptData
		}
		return int64(binary.LittleEndian.Uint64(valueBytes)), nil
	case catalog.TypeVarChar:
		return string(valueBytes), nil
	case catalog.TypeBoolean:
		if len(valueBytes) != 1 {
			return nil, ErrCorruptData
		}
		switch valueBytes[0] {
		case 1:
			return true, nil
		case 0:
			return false, nil
		}
		return nil, ErrCorruptData
	case catalog.TypeBlob:
		value := make([]byte, len(valueBytes))
		copy(value, valueBytes)
		return value, nil
	case catalog.TypeFloat:
		if len(valueBytes) != 8 {
			return nil, ErrCorruptData
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(valueBytes)), nil
	}
	return nil, ErrCorruptData
}

func Deserialize(data []byte, schema *catalog.Schema) (Tuple, error) {
	if len(data) < 2 {
		return nil, ErrCorruptData
	}

	numValues := int(binary.LittleEndian.Uint16(data[0:]))
	if numValues != len(schema.Columns) || numValues == 0 {
		return nil, ErrCorruptData
	}

	bitmapSize := (numValues + 7) / 8
	headerSize := 2 + (2 * numValues) + bitmapSize
	if len(data) < headerSize {
		return nil, ErrCorruptData
	}

	offsets := make([]uint16, numValues)
	for i := range numValues {
		offsetPosition := 2 + (2 * i)
		offsets[i] = binary.LittleEndian.Uint16(data[offsetPosition:])
	}
	bitmap := data[2+2*numValues : headerSize]

	totalSize := headerSize + int(offsets[numValues-1])
	if len(data) != totalSize {
		return nil, ErrCorruptData
	}

	tuple := make(Tuple, numValues)
	dataSection := data[headerSize:]
	dataSize := uint16(len(dataSection))
	startPos := uint16(0)

	for i, endPos := range offsets {
		if startPos > endPos || endPos > dataSize {
			return nil, ErrCorruptData
		}

		if bitmap[i/8]&(1<<(i%8)) != 0 {
			if endPos != startPos {
				return nil, ErrCorruptData
			}
			continue
		}

		value, err := decodeValue(dataSection[startPos:endPos], schema.Columns[i].Type)
		if err != nil {
			return nil, err
		}

		tuple[i] = value
		startPos = endPos
	}

	return tuple, nil
}
