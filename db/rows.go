package db

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/storage"
	"github.com/rizalta/toysql/tuple"
)

type indexEntry struct {
	index  catalog.Index
	column int
	key    []byte
}

// indexEntries lists the index keys row occupies. NULL values are not
// indexed. A key too large to store fails the whole row.
func (db *Database) indexEntries(schema *catalog.Schema, row tuple.Tuple) ([]indexEntry, error) {
	entries := make([]indexEntry, 0, len(schema.Indexes))
	for _, idx := range schema.Indexes {
		pos := schema.ColumnIndex(idx.Column)
		if pos < 0 || row[pos] == nil {
			continue
		}
		key, err := indexKey(idx.Kind, schema.ID, pos, row[pos])
		if err != nil {
			return nil, err
		}
		if err := checkKeySize(key); err != nil {
			return nil, fmt.Errorf("index on %s: %w", idx.Column, err)
		}
		entries = append(entries, indexEntry{index: idx, column: pos, key: key})
	}
	return entries, nil
}

func (db *Database) readRow(schema *catalog.Schema, key []byte) (tuple.Tuple, bool, error) {
	data, found, err := db.store.Get(key)
	if err != nil || !found {
		return nil, false, err
	}

	row, err := tuple.Deserialize(data, schema)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// lookupIndex finds the row whose indexed column equals value. Hash
// entries are verified against the stored row, so a colliding value is
// reported as not found.
func (db *Database) lookupIndex(schema *catalog.Schema, idx catalog.Index, pos int, value tuple.Value) ([]byte, tuple.Tuple, bool, error) {
	if value == nil {
		return nil, nil, false, nil
	}

	key, err := indexKey(idx.Kind, schema.ID, pos, value)
	if err != nil {
		return nil, nil, false, err
	}

	rowKey, found, err := db.store.Get(key)
	if err != nil || !found {
		return nil, nil, false, err
	}

	row, found, err := db.readRow(schema, rowKey)
	if err != nil || !found {
		return nil, nil, false, err
	}

	if cmp, err := tuple.Compare(row[pos], value); err != nil || cmp != 0 {
		return rowKey, row, false, nil
	}
	return rowKey, row, true, nil
}

// Insert stores row, given in schema column order, and its index entries.
func (db *Database) Insert(tableName string, row tuple.Tuple) error {
	schema, err := db.schema(tableName)
	if err != nil {
		return err
	}

	if len(row) != len(schema.Columns) {
		return ErrColumnCountMismatch
	}

	for i, column := range schema.Columns {
		if column.IsNotNull && row[i] == nil {
			if column.IsPrimaryKey {
				return ErrInvalidPrimaryKey
			}
			return fmt.Errorf("%w: %s", ErrNotNULL, column.Name)
		}
	}

	data, err := tuple.Serialize(row, schema)
	if err != nil {
		return err
	}

	key, err := rowKey(schema.ID, row[schema.PrimaryKeyIndex])
	if err != nil {
		return err
	}
	if err := checkKeySize(key); err != nil {
		return fmt.Errorf("primary key: %w", err)
	}

	if _, found, err := db.store.Get(key); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, row[schema.PrimaryKeyIndex])
	}

	entries, err := db.indexEntries(schema, row)
	if err != nil {
		return err
	}

	for _, e := range entries {
		existingKey, _, same, err := db.lookupIndex(schema, e.index, e.column, row[e.column])
		if err != nil {
			return err
		}
		if same {
			return fmt.Errorf("%w: %s = %v", ErrDuplicateIndexValue, e.index.Column, row[e.column])
		}
		if existingKey != nil {
			return fmt.Errorf("%w: %s", ErrHashCollision, e.index.Column)
		}
	}

	if err := db.store.Add(key, data); err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			return fmt.Errorf("%w: %v", ErrDuplicateKey, row[schema.PrimaryKeyIndex])
		}
		return err
	}

	written := [][]byte{key}
	for _, e := range entries {
		if err := db.store.Put(e.key, key); err != nil {
			return db.undo(err, written)
		}
		written = append(written, e.key)
	}

	return nil
}

// undo deletes keys written by a statement that failed with cause.
func (db *Database) undo(cause error, keys [][]byte) error {
	result := multierror.Append(nil, cause)
	for _, key := range keys {
		if _, err := db.store.Delete(key); err != nil {
			result = multierror.Append(result, err)
		}
	}
	db.logger.Warn("statement rolled back", "keys", len(keys), "error", cause)
	return result.ErrorOrNil()
}

func (db *Database) Get(tableName string, primaryKey tuple.Value) (tuple.Tuple, bool, error) {
	schema, err := db.schema(tableName)
	if err != nil {
		return nil, false, err
	}

	key, err := rowKey(schema.ID, primaryKey)
	if err != nil {
		return nil, false, err
	}

	return db.readRow(schema, key)
}

// removeRow deletes a row and the index entries that point at it.
func (db *Database) removeRow(schema *catalog.Schema, key []byte, row tuple.Tuple) error {
	entries, err := db.indexEntries(schema, row)
	if err != nil {
		return err
	}

	for _, e := range entries {
		target, found, err := db.store.Get(e.key)
		if err != nil {
			return err
		}
		if found && bytes.Equal(target, key) {
			if _, err := db.store.Delete(e.key); err != nil {
				return err
			}
		}
	}

	_, err = db.store.Delete(key)
	return err
}
