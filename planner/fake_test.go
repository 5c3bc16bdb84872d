package planner

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/predicate"
	"github.com/rizalta/toysql/query"
	"github.com/rizalta/toysql/tuple"
)

var errFakeTable = errors.New("fake: no such table")

// call records one storage access made through fakeEngine.
type call struct {
	Op      string
	Table   string
	Key     query.Attribute
	Begin   query.Attribute
	End     query.Attribute
	Pred    string
	Columns []string
}

type fakeTable struct {
	columns []string
	types   []catalog.DataType
	rows    []tuple.Tuple
	indexed map[string]catalog.IndexKind
}

// fakeEngine keeps rows in memory and answers every access path by
// filtering them, so results can be compared across paths.
type fakeEngine struct {
	tables map[string]*fakeTable
	calls  []call
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{tables: make(map[string]*fakeTable)}
}

// addTable registers table with rows given in column order.
func (f *fakeEngine) addTable(name string, columns []string, types []catalog.DataType, rows ...tuple.Tuple) *fakeTable {
	t := &fakeTable{
		columns: columns,
		types:   types,
		rows:    rows,
		indexed: make(map[string]catalog.IndexKind),
	}
	f.tables[name] = t
	return t
}

// storageCalls lists the row accessing and index building calls.
func (f *fakeEngine) storageCalls() []call {
	var out []call
	for _, c := range f.calls {
		switch c.Op {
		case "load", "point_lookup", "range_scan", "create_index":
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeEngine) table(name string) (*fakeTable, error) {
	t, ok := f.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errFakeTable, name)
	}
	return t, nil
}

func (f *fakeEngine) IsTable(name string) (bool, error) {
	_, ok := f.tables[name]
	return ok, nil
}

func (f *fakeEngine) CreateTable(name, pk string, types []catalog.DataType, names []string) error {
	f.calls = append(f.calls, call{Op: "create_table", Table: name, Key: query.Key(pk, nil), Columns: names})
	f.addTable(name, names, types)
	return nil
}

func (f *fakeEngine) TableAttributes(name string) ([]string, error) {
	t, err := f.table(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.columns), nil
}

func (f *fakeEngine) SortAttributes(name string, columns []string) ([]string, error) {
	t, err := f.table(name)
	if err != nil {
		return nil, err
	}
	var sorted []string
	for _, c := range t.columns {
		if slices.Contains(columns, c) {
			sorted = append(sorted, c)
		}
	}
	for _, c := range columns {
		if !slices.Contains(sorted, c) {
			sorted = append(sorted, c)
		}
	}
	return sorted, nil
}

func (f *fakeEngine) CreateIndex(table, column string, kind catalog.IndexKind) error {
	f.calls = append(f.calls, call{Op: "create_index", Table: table, Key: query.Key(column, nil)})
	t, err := f.table(table)
	if err != nil {
		return err
	}
	t.indexed[column] = kind
	return nil
}

func (f *fakeEngine) IndexedColumns(name string) (map[string]catalog.IndexKind, error) {
	t, err := f.table(name)
	if err != nil {
		return nil, err
	}
	return t.indexed, nil
}

func (f *fakeEngine) Comparator(table string, op query.Comparator, column string, value tuple.Value) (predicate.Predicate, error) {
	t, err := f.table(table)
	if err != nil {
		return nil, err
	}
	pos := slices.Index(t.columns, column)
	if pos < 0 {
		return nil, fmt.Errorf("fake: no column %s", column)
	}
	if err := tuple.CheckType(value, t.types[pos]); err != nil {
		return nil, err
	}
	return predicate.Compare{Position: pos, Column: column, Op: op, Value: value}, nil
}

func (f *fakeEngine) collect(t *fakeTable, keep func(tuple.Tuple) bool, pred predicate.Predicate, columns []string) *query.Response {
	if pred == nil {
		pred = predicate.True
	}
	records := []tuple.Tuple{}
	for _, row := range t.rows {
		if !keep(row) || !pred.Evaluate(row) {
			continue
		}
		out := make(tuple.Tuple, len(columns))
		for i, c := range columns {
			out[i] = row[slices.Index(t.columns, c)]
		}
		records = append(records, out)
	}
	return &query.Response{Records: records, Times: query.Timings{}}
}

func (f *fakeEngine) Load(table string, columns []string, pred predicate.Predicate) (*query.Response, error) {
	f.calls = append(f.calls, call{Op: "load", Table: table, Pred: pred.String(), Columns: columns})
	t, err := f.table(table)
	if err != nil {
		return nil, err
	}
	resp := f.collect(t, func(tuple.Tuple) bool { return true }, pred, columns)
	resp.Times["load"] = 1
	return resp, nil
}

func (f *fakeEngine) PointLookup(table string, key query.Attribute, pred predicate.Predicate, columns []string) (*query.Response, error) {
	f.calls = append(f.calls, call{Op: "point_lookup", Table: table, Key: key, Pred: pred.String(), Columns: columns})
	t, err := f.table(table)
	if err != nil {
		return nil, err
	}
	pos := slices.Index(t.columns, key.Name)
	resp := f.collect(t, func(row tuple.Tuple) bool {
		cmp, err := tuple.Compare(row[pos], key.Value)
		return err == nil && cmp == 0
	}, pred, columns)
	resp.Times["point_lookup"] = 2
	return resp, nil
}

func (f *fakeEngine) RangeScan(table string, begin, end query.Attribute, pred predicate.Predicate, columns []string) (*query.Response, error) {
	f.calls = append(f.calls, call{Op: "range_scan", Table: table, Begin: begin, End: end, Pred: pred.String(), Columns: columns})
	t, err := f.table(table)
	if err != nil {
		return nil, err
	}
	name := begin.Name
	if name == "" {
		name = end.Name
	}
	pos := slices.Index(t.columns, name)
	resp := f.collect(t, func(row tuple.Tuple) bool {
		if !begin.IsMin() {
			if cmp, err := tuple.Compare(row[pos], begin.Value); err != nil || cmp < 0 {
				return false
			}
		}
		if !end.IsMax() {
			if cmp, err := tuple.Compare(row[pos], end.Value); err != nil || cmp > 0 {
				return false
			}
		}
		return true
	}, pred, columns)
	resp.Times["range_scan"] = 3
	return resp, nil
}

func (f *fakeEngine) AppendRow(table string, values []tuple.Value) error {
	t, err := f.table(table)
	if err != nil {
		return err
	}
	row := slices.Clone(values)
	slices.Reverse(row)
	t.rows = append(t.rows, row)
	return nil
}

func (f *fakeEngine) DeleteRow(table string, key query.Attribute) (int, error) {
	f.calls = append(f.calls, call{Op: "delete_row", Table: table, Key: key})
	return 0, nil
}

func (f *fakeEngine) DropTable(table string) error {
	delete(f.tables, table)
	return nil
}

func (f *fakeEngine) BulkLoadCSV(table, path string) (int, error) {
	f.calls = append(f.calls, call{Op: "bulk_load", Table: table, Key: query.Key("path", path)})
	return 0, nil
}

func (f *fakeEngine) ListTables() ([]string, error) {
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
