package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

var (
	ErrAlreadyExists         = errors.New("catalog: table already exists")
	ErrTableNotFound         = errors.New("catalog: table not found")
	ErrColumnNotFound        = errors.New("catalog: column not found")
	ErrIndexExists           = errors.New("catalog: column is already indexed")
	ErrNoPrimaryKey          = errors.New("catalog: no primary key")
	ErrMultiplePrimaryKeys   = errors.New("catalog: multiple primary keys")
	ErrPrimaryKeyNotNull     = errors.New("catalog: primary key should be not null")
	ErrUnsupportedPrimaryKey = errors.New("catalog: unsupported type for primary key")
	ErrDuplicateColumnName   = errors.New("catalog: duplicate column name")
)

// Store is the key value space schemas live in.
type Store interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) (bool, error)
	Close() error
}

var directoryKey = []byte("catalog:__schema__")

func schemaKey(name string) []byte {
	return []byte("table:" + name)
}

// directory is the persisted list of tables and the next table id.
type directory struct {
	NextID uint32   `json:"next_id"`
	Tables []string `json:"tables"`
}

func (d *directory) add(name string) uint32 {
	id := d.NextID
	d.NextID++
	i, _ := slices.BinarySearch(d.Tables, name)
	d.Tables = slices.Insert(d.Tables, i, name)
	return id
}

func (d *directory) remove(name string) {
	d.Tables = slices.DeleteFunc(d.Tables, func(t string) bool { return t == name })
}

// Manager stores one JSON schema per table under "table:<name>" and
// caches every schema it decodes.
type Manager struct {
	store Store
	dir   directory
	cache map[string]*Schema
}

func NewManager(store Store) (*Manager, error) {
	m := &Manager{
		store: store,
		dir:   directory{NextID: 1},
		cache: make(map[string]*Schema),
	}

	data, found, err := store.Get(directoryKey)
	if err != nil {
		return nil, err
	}
	if found {
		if err := json.Unmarshal(data, &m.dir); err != nil {
			return nil, fmt.Errorf("catalog: failed to decode table directory: %w", err)
		}
	}
	return m, nil
}

func (m *Manager) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.store.Put(key, data)
}

func (m *Manager) saveSchema(schema *Schema) error {
	if err := m.put(schemaKey(schema.Name), schema); err != nil {
		return err
	}
	m.cache[schema.Name] = schema
	return nil
}

// primaryKey checks the column list and returns the position of its single
// primary key column.
func primaryKey(columns []Column) (int, error) {
	seen := make(map[string]bool, len(columns))
	pk := -1
	for i, c := range columns {
		if seen[c.Name] {
			return -1, fmt.Errorf("%w: %s", ErrDuplicateColumnName, c.Name)
		}
		seen[c.Name] = true

		if !c.IsPrimaryKey {
			continue
		}
		if pk >= 0 {
			return -1, fmt.Errorf("%w: %s and %s", ErrMultiplePrimaryKeys, columns[pk].Name, c.Name)
		}
		pk = i
	}
	if pk < 0 {
		return -1, ErrNoPrimaryKey
	}

	switch key := columns[pk]; {
	case key.Type != TypeInt && key.Type != TypeVarChar && key.Type != TypeFloat:
		return -1, fmt.Errorf("%w: %s is %s", ErrUnsupportedPrimaryKey, key.Name, key.Type)
	case !key.IsNotNull:
		return -1, fmt.Errorf("%w: %s", ErrPrimaryKeyNotNull, key.Name)
	}
	return pk, nil
}

func (m *Manager) CreateTable(name string, columns []Column) (*Schema, error) {
	pk, err := primaryKey(columns)
	if err != nil {
		return nil, err
	}

	if _, found, err := m.store.Get(schemaKey(name)); err != nil {
		return nil, err
	} else if found {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	next := m.dir
	next.Tables = slices.Clone(m.dir.Tables)
	schema := &Schema{
		ID:              next.add(name),
		Name:            name,
		Columns:         slices.Clone(columns),
		PrimaryKeyIndex: pk,
	}

	if err := m.saveSchema(schema); err != nil {
		return nil, err
	}
	if err := m.put(directoryKey, next); err != nil {
		return nil, err
	}
	m.dir = next
	return schema, nil
}

func (m *Manager) GetTable(name string) (*Schema, error) {
	if schema, ok := m.cache[name]; ok {
		return schema, nil
	}

	data, found, err := m.store.Get(schemaKey(name))
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read schema: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	schema := &Schema{}
	if err := json.Unmarshal(data, schema); err != nil {
		return nil, fmt.Errorf("catalog: failed to decode schema %s: %w", name, err)
	}
	m.cache[name] = schema
	return schema, nil
}

// AddIndex records an index on column. Building the index entries is the
// caller's job.
func (m *Manager) AddIndex(table, column string, kind IndexKind) (*Schema, error) {
	schema, err := m.GetTable(table)
	if err != nil {
		return nil, err
	}
	if schema.ColumnIndex(column) < 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, column)
	}
	if _, ok := schema.IndexOn(column); ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrIndexExists, table, column)
	}

	updated := *schema
	updated.Indexes = append(slices.Clone(schema.Indexes), Index{Column: column, Kind: kind})
	if err := m.saveSchema(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (m *Manager) DropTable(name string) error {
	if _, err := m.GetTable(name); err != nil {
		return err
	}

	if _, err := m.store.Delete(schemaKey(name)); err != nil {
		return fmt.Errorf("catalog: failed to delete schema: %w", err)
	}
	delete(m.cache, name)

	m.dir.remove(name)
	return m.put(directoryKey, m.dir)
}

// ListTables returns the table names in sorted order.
func (m *Manager) ListTables() []string {
	return slices.Clone(m.dir.Tables)
}

func (m *Manager) Close() error {
	return m.store.Close()
}
