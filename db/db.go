// Package db is the storage engine: tables, rows and secondary indexes on
// top of the key value store.
package db

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/logging"
	"github.com/rizalta/toysql/storage"
	"github.com/rizalta/toysql/tuple"
)

var (
	ErrInvalidPrimaryKey   = errors.New("db: primary key cannot be NULL")
	ErrColumnCountMismatch = errors.New("db: number of values mismatch with schema column count")
	ErrNotNULL             = errors.New("db: value cannot be NULL")
	ErrDuplicateKey        = errors.New("db: duplicate primary key")
	ErrDuplicateIndexValue = errors.New("db: duplicate value in indexed column")
	ErrHashCollision       = errors.New("db: hash index collision")
	ErrInvalidBound        = errors.New("db: invalid key bound")
	ErrKeyTooLarge         = errors.New("db: encoded key too large")
)

type Database struct {
	store   *storage.Store
	catalog *catalog.Manager
	logger  *slog.Logger
}

type options struct {
	syncWrites bool
	logger     *slog.Logger
}

type Option func(*options)

func WithSyncWrites(sync bool) Option {
	return func(o *options) {
		o.syncWrites = sync
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func NewDatabase(dirPath string, opts ...Option) (*Database, error) {
	o := options{syncWrites: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Get()
	}

	store, err := storage.NewStore(dirPath, storage.WithSyncWrites(o.syncWrites))
	if err != nil {
		return nil, err
	}
	catalog, err := catalog.NewManager(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	db := &Database{
		store:   store,
		catalog: catalog,
		logger:  o.logger.With("component", "db"),
	}

	return db, nil
}

func (db *Database) schema(table string) (*catalog.Schema, error) {
	return db.catalog.GetTable(table)
}

func (db *Database) column(schema *catalog.Schema, name string) (int, error) {
	pos := schema.ColumnIndex(name)
	if pos < 0 {
		return -1, fmt.Errorf("%w: %s.%s", catalog.ErrColumnNotFound, schema.Name, name)
	}
	return pos, nil
}

func (db *Database) checkValue(schema *catalog.Schema, pos int, value tuple.Value) error {
	column := schema.Columns[pos]
	if err := tuple.CheckType(value, column.Type); err != nil {
		return fmt.Errorf("%w: column %s is %s", err, column.Name, column.Type)
	}
	return nil
}

func (db *Database) Close() error {
	return db.catalog.Close()
}
