// Package planner turns a table, a projection and a constraint set into
// storage engine calls. Each OR-group gets one access path: a point lookup,
// a range scan or a filtered full scan. Group results are then merged.
package planner

import (
	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/predicate"
	"github.com/rizalta/toysql/query"
	"github.com/rizalta/toysql/tuple"
)

// Engine is the storage engine as seen by the planner and the session.
// *db.Database implements it.
type Engine interface {
	IsTable(name string) (bool, error)
	CreateTable(name, pk string, types []catalog.DataType, names []string) error
	TableAttributes(name string) ([]string, error)
	SortAttributes(name string, columns []string) ([]string, error)
	CreateIndex(table, column string, kind catalog.IndexKind) error
	IndexedColumns(name string) (map[string]catalog.IndexKind, error)
	Comparator(table string, op query.Comparator, column string, value tuple.Value) (predicate.Predicate, error)

	Load(table string, columns []string, pred predicate.Predicate) (*query.Response, error)
	PointLookup(table string, key query.Attribute, pred predicate.Predicate, columns []string) (*query.Response, error)
	RangeScan(table string, begin, end query.Attribute, pred predicate.Predicate, columns []string) (*query.Response, error)

	AppendRow(table string, values []tuple.Value) error
	DeleteRow(table string, key query.Attribute) (int, error)
	DropTable(table string) error
	BulkLoadCSV(table, path string) (int, error)
	ListTables() ([]string, error)
}
