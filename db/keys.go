package db

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/index"
	"github.com/rizalta/toysql/tuple"
)

// Every table owns three key spaces in the store:
//
//	'r' | tableID | key(pk)                    -> serialized row
//	'x' | tableID | column | key(value)        -> row key (B+tree index)
//	'h' | tableID | column | fnv64(key(value)) -> row key (hash index)
const (
	rowTag   byte = 'r'
	btreeTag byte = 'x'
	hashTag  byte = 'h'
)

func tablePrefix(tag byte, tableID uint32) []byte {
	prefix := make([]byte, 5, 32)
	prefix[0] = tag
	binary.BigEndian.PutUint32(prefix[1:], tableID)
	return prefix
}

func rowPrefix(tableID uint32) []byte {
	return tablePrefix(rowTag, tableID)
}

func rowKey(tableID uint32, primaryKey tuple.Value) ([]byte, error) {
	key, err := tuple.AppendKey(rowPrefix(tableID), primaryKey)
	if errors.Is(err, tuple.ErrNullValue) {
		return nil, ErrInvalidPrimaryKey
	}
	return key, err
}

func indexPrefix(kind catalog.IndexKind, tableID uint32, column int) []byte {
	tag := btreeTag
	if kind == catalog.IndexHash {
		tag = hashTag
	}
	return binary.BigEndian.AppendUint16(tablePrefix(tag, tableID), uint16(column))
}

func indexKey(kind catalog.IndexKind, tableID uint32, column int, value tuple.Value) ([]byte, error) {
	prefix := indexPrefix(kind, tableID, column)
	if kind != catalog.IndexHash {
		return tuple.AppendKey(prefix, value)
	}

	encoded, err := tuple.EncodeKey(value)
	if err != nil {
		return nil, err
	}
	h := fnv.New64a()
	h.Write(encoded)
	return binary.BigEndian.AppendUint64(prefix, h.Sum64()), nil
}

// checkKeySize rejects a key the store could not hold. Writes check every
// key of a row before the first one is stored.
func checkKeySize(key []byte) error {
	if len(key) > index.MaxKeySize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrKeyTooLarge, len(key), index.MaxKeySize)
	}
	return nil
}

// inclusiveEnd turns an encoded value into an exclusive upper bound that
// still admits the value itself. Key encodings are prefix free, so no
// other value sorts between them.
func inclusiveEnd(key []byte) []byte {
	return append(bytes.Clone(key), 0x00)
}
