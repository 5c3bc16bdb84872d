package db

import (
	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/storage"
	"github.com/rizalta/toysql/tuple"
)

// Scanner walks the rows of one table in primary key order.
type Scanner struct {
	iterator *storage.Iterator
	schema   *catalog.Schema
}

func (db *Database) Scan(tableName string) (*Scanner, error) {
	schema, err := db.schema(tableName)
	if err != nil {
		return nil, err
	}

	prefix := rowPrefix(schema.ID)
	return db.scanRange(schema, prefix, storage.PrefixEnd(prefix))
}

func (db *Database) scanRange(schema *catalog.Schema, start, end []byte) (*Scanner, error) {
	iterator, err := db.store.NewIterator(start, end)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		iterator: iterator,
		schema:   schema,
	}, nil
}

// Next returns the next row, or nil once the table is exhausted.
func (s *Scanner) Next() (tuple.Tuple, error) {
	row, _, err := s.next()
	return row, err
}

func (s *Scanner) next() (tuple.Tuple, []byte, error) {
	key, value, err := s.iterator.Next()
	if err != nil || key == nil {
		return nil, nil, err
	}

	row, err := tuple.Deserialize(value, s.schema)
	if err != nil {
		return nil, nil, err
	}
	return row, key, nil
}

// each calls fn for every row in the scan, stopping at the first error.
func (s *Scanner) each(fn func(key []byte, row tuple.Tuple) error) error {
	for {
		row, key, err := s.next()
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		if err := fn(key, row); err != nil {
			return err
		}
	}
}
