package storage

import "bytes"

type Cursor interface {
	Next() ([]byte, uint64, error)
}

// Iterator walks live records in key order. Tombstones left by Delete are
// skipped.
type Iterator struct {
	store  *Store
	cursor Cursor
}

// NewIterator covers [begin, end). Nil bounds are open.
func (s *Store) NewIterator(begin, end []byte) (*Iterator, error) {
	cursor, err := s.index.NewCursor(begin, end)
	if err != nil {
		return nil, err
	}
	return &Iterator{store: s, cursor: cursor}, nil
}

// NewPrefixIterator covers every key starting with prefix.
func (s *Store) NewPrefixIterator(prefix []byte) (*Iterator, error) {
	return s.NewIterator(prefix, PrefixEnd(prefix))
}

// Next returns a nil key once the range is exhausted.
func (it *Iterator) Next() ([]byte, []byte, error) {
	for {
		key, offset, err := it.cursor.Next()
		if err != nil || key == nil {
			return nil, nil, err
		}

		rec, err := it.store.readRecord(offset)
		if err != nil {
			return nil, nil, err
		}
		if rec.RecordType != RecordTypeDelete {
			return key, rec.Value, nil
		}
	}
}

// Each calls fn for every remaining record and stops at the first error.
func (it *Iterator) Each(fn func(key, value []byte) error) error {
	for {
		key, value, err := it.Next()
		if err != nil || key == nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
}

// PrefixEnd returns the smallest key greater than every key starting with
// prefix, or nil when no such key exists.
func PrefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
