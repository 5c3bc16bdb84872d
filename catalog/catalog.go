// Package catalog holds table schemas and their index definitions.
package catalog

import (
	"fmt"
	"strings"
)

type DataType uint8

const (
	TypeInt DataType = iota
	TypeVarChar
	TypeBoolean
	TypeBlob
	TypeFloat
)

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeVarChar:
		return "varchar"
	case TypeBoolean:
		return "boolean"
	case TypeBlob:
		return "blob"
	case TypeFloat:
		return "float"
	}
	return fmt.Sprintf("DataType(%d)", t)
}

// ParseDataType maps a SQL type name to a DataType.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToLower(name) {
	case "int", "integer", "bigint":
		return TypeInt, nil
	case "varchar", "string", "text":
		return TypeVarChar, nil
	case "bool", "boolean":
		return TypeBoolean, nil
	case "blob", "bytes":
		return TypeBlob, nil
	case "float", "double", "real":
		return TypeFloat, nil
	}
	return 0, fmt.Errorf("catalog: unknown type %q", name)
}

type IndexKind uint8

const (
	IndexBTree IndexKind = iota
	IndexHash
)

func (k IndexKind) String() string {
	switch k {
	case IndexBTree:
		return "btree"
	case IndexHash:
		return "hash"
	}
	return fmt.Sprintf("IndexKind(%d)", k)
}

// ParseIndexKind maps an index method name to an IndexKind. An empty name
// is a B+tree index.
func ParseIndexKind(name string) (IndexKind, error) {
	switch strings.ToLower(name) {
	case "", "btree":
		return IndexBTree, nil
	case "hash":
		return IndexHash, nil
	}
	return 0, fmt.Errorf("catalog: unknown index kind %q", name)
}

type Column struct {
	Name         string   `json:"name"`
	Type         DataType `json:"type"`
	IsPrimaryKey bool     `json:"is_primary_key,omitempty"`
	IsNotNull    bool     `json:"is_not_null,omitempty"`
}

type Index struct {
	Column string    `json:"column"`
	Kind   IndexKind `json:"kind"`
}

type Schema struct {
	ID              uint32   `json:"id"`
	Name            string   `json:"name"`
	Columns         []Column `json:"columns"`
	PrimaryKeyIndex int      `json:"pk_index"`
	Indexes         []Index  `json:"indexes,omitempty"`
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s *Schema) PrimaryKey() Column {
	return s.Columns[s.PrimaryKeyIndex]
}

func (s *Schema) IndexOn(column string) (Index, bool) {
	for _, idx := range s.Indexes {
		if idx.Column == column {
			return idx, true
		}
	}
	return Index{}, false
}

func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
