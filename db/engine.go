package db

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/metrics"
	"github.com/rizalta/toysql/predicate"
	"github.com/rizalta/toysql/query"
	"github.com/rizalta/toysql/storage"
	"github.com/rizalta/toysql/tuple"
)

// Step names recorded in query.Response timings.
const (
	StepLoad        = "load"
	StepPointLookup = "point_lookup"
	StepRangeScan   = "range_scan"
	StepDelete      = "delete"
	StepBulkLoad    = "bulk_load"
)

func (db *Database) IsTable(name string) (bool, error) {
	if _, err := db.schema(name); err != nil {
		if errors.Is(err, catalog.ErrTableNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateTable creates a table whose columns are given as parallel type and
// name lists. The column named pk becomes the not null primary key.
func (db *Database) CreateTable(name, pk string, types []catalog.DataType, names []string) error {
	if len(types) != len(names) {
		return ErrColumnCountMismatch
	}

	columns := make([]catalog.Column, len(names))
	for i, n := range names {
		columns[i] = catalog.Column{
			Name:         n,
			Type:         types[i],
			IsPrimaryKey: n == pk,
			IsNotNull:    n == pk,
		}
	}

	schema, err := db.catalog.CreateTable(name, columns)
	if err != nil {
		return err
	}
	db.logger.Debug("table created", "table", name, "id", schema.ID, "pk", pk)
	return nil
}

func (db *Database) TableAttributes(name string) ([]string, error) {
	schema, err := db.schema(name)
	if err != nil {
		return nil, err
	}
	return schema.ColumnNames(), nil
}

// SortAttributes reorders columns into schema order and drops repeats.
// Names the table does not have are kept, after the known ones, so that
// validation can still report them.
func (db *Database) SortAttributes(name string, columns []string) ([]string, error) {
	schema, err := db.schema(name)
	if err != nil {
		return nil, err
	}

	sorted := make([]string, 0, len(columns))
	for _, c := range schema.Columns {
		if slices.Contains(columns, c.Name) {
			sorted = append(sorted, c.Name)
		}
	}
	for _, c := range columns {
		if schema.ColumnIndex(c) < 0 && !slices.Contains(sorted, c) {
			sorted = append(sorted, c)
		}
	}
	return sorted, nil
}

// CreateIndex builds a unique index over the existing rows of column.
func (db *Database) CreateIndex(table, column string, kind catalog.IndexKind) error {
	schema, err := db.schema(table)
	if err != nil {
		return err
	}
	pos, err := db.column(schema, column)
	if err != nil {
		return err
	}
	if _, ok := schema.IndexOn(column); ok {
		return fmt.Errorf("%w: %s.%s", catalog.ErrIndexExists, table, column)
	}

	scanner, err := db.Scan(table)
	if err != nil {
		return err
	}

	type pending struct {
		key    []byte
		rowKey []byte
		value  tuple.Value
	}
	seen := make(map[string]tuple.Value)
	var entries []pending
	err = scanner.each(func(rowKey []byte, row tuple.Tuple) error {
		value := row[pos]
		if value == nil {
			return nil
		}
		key, err := indexKey(kind, schema.ID, pos, value)
		if err != nil {
			return err
		}
		if err := checkKeySize(key); err != nil {
			return fmt.Errorf("index on %s: %w", column, err)
		}
		if prev, ok := seen[string(key)]; ok {
			if cmp, _ := tuple.Compare(prev, value); cmp == 0 {
				return fmt.Errorf("%w: %s = %v", ErrDuplicateIndexValue, column, value)
			}
			return fmt.Errorf("%w: %s", ErrHashCollision, column)
		}
		seen[string(key)] = value
		entries = append(entries, pending{key: key, rowKey: rowKey, value: value})
		return nil
	})
	if err != nil {
		return err
	}

	// entries go in before the catalog lists the index, so a failure leaves
	// the table as it was
	written := make([][]byte, 0, len(entries))
	for _, e := range entries {
		if err := db.store.Put(e.key, e.rowKey); err != nil {
			return db.undo(err, written)
		}
		written = append(written, e.key)
	}
	if _, err := db.catalog.AddIndex(table, column, kind); err != nil {
		return db.undo(err, written)
	}

	db.logger.Debug("index created", "table", table, "column", column, "kind", kind, "rows", len(entries))
	return nil
}

func (db *Database) IndexedColumns(name string) (map[string]catalog.IndexKind, error) {
	schema, err := db.schema(name)
	if err != nil {
		return nil, err
	}

	indexed := make(map[string]catalog.IndexKind, len(schema.Indexes))
	for _, idx := range schema.Indexes {
		indexed[idx.Column] = idx.Kind
	}
	return indexed, nil
}

// Comparator compiles "column op value" against the table's row layout.
// value must have the column's type.
func (db *Database) Comparator(table string, op query.Comparator, column string, value tuple.Value) (predicate.Predicate, error) {
	schema, err := db.schema(table)
	if err != nil {
		return nil, err
	}
	pos, err := db.column(schema, column)
	if err != nil {
		return nil, err
	}
	if err := db.checkValue(schema, pos, value); err != nil {
		return nil, err
	}

	return predicate.Compare{Position: pos, Column: column, Op: op, Value: value}, nil
}

type projection []int

func (db *Database) projection(schema *catalog.Schema, columns []string) (projection, error) {
	if len(columns) == 0 {
		p := make(projection, len(schema.Columns))
		for i := range p {
			p[i] = i
		}
		return p, nil
	}

	p := make(projection, len(columns))
	for i, c := range columns {
		pos, err := db.column(schema, c)
		if err != nil {
			return nil, err
		}
		p[i] = pos
	}
	return p, nil
}

func (p projection) apply(row tuple.Tuple) tuple.Tuple {
	out := make(tuple.Tuple, len(p))
	for i, pos := range p {
		out[i] = row[pos]
	}
	return out
}

// collector filters rows through pred and projects the survivors.
type collector struct {
	pred    predicate.Predicate
	proj    projection
	records []tuple.Tuple
}

func (db *Database) newCollector(schema *catalog.Schema, pred predicate.Predicate, columns []string) (*collector, error) {
	proj, err := db.projection(schema, columns)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		pred = predicate.True
	}
	return &collector{pred: pred, proj: proj, records: []tuple.Tuple{}}, nil
}

func (c *collector) add(_ []byte, row tuple.Tuple) error {
	if c.pred.Evaluate(row) {
		c.records = append(c.records, c.proj.apply(row))
	}
	return nil
}

func timed(step string, start time.Time, records []tuple.Tuple) *query.Response {
	elapsed := time.Since(start)
	metrics.ObserveStep(step, elapsed)
	return &query.Response{
		Records: records,
		Times:   query.Timings{step: elapsed},
	}
}

// Load is a full scan of table in primary key order.
func (db *Database) Load(table string, columns []string, pred predicate.Predicate) (*query.Response, error) {
	start := time.Now()

	schema, err := db.schema(table)
	if err != nil {
		return nil, err
	}
	c, err := db.newCollector(schema, pred, columns)
	if err != nil {
		return nil, err
	}

	scanner, err := db.Scan(table)
	if err != nil {
		return nil, err
	}
	if err := scanner.each(c.add); err != nil {
		return nil, err
	}

	return timed(StepLoad, start, c.records), nil
}

func (db *Database) boundColumn(schema *catalog.Schema, attrs ...query.Attribute) (int, error) {
	name := ""
	for _, a := range attrs {
		if a.Name != "" {
			name = a.Name
			break
		}
	}
	pos, err := db.column(schema, name)
	if err != nil {
		return -1, err
	}

	for _, a := range attrs {
		if a.Name != "" && a.Name != name {
			return -1, fmt.Errorf("%w: bounds on %s and %s", ErrInvalidBound, name, a.Name)
		}
		if a.Bound != query.BoundValue {
			continue
		}
		if err := db.checkValue(schema, pos, a.Value); err != nil {
			return -1, err
		}
	}
	return pos, nil
}

// PointLookup fetches the rows whose key column equals key.Value. Primary
// key and indexed columns are answered from the index and yield at most one
// row. Other columns fall back to a filtered scan.
func (db *Database) PointLookup(table string, key query.Attribute, pred predicate.Predicate, columns []string) (*query.Response, error) {
	start := time.Now()

	schema, err := db.schema(table)
	if err != nil {
		return nil, err
	}
	if key.Bound != query.BoundValue {
		return nil, fmt.Errorf("%w: point lookup on %s", ErrInvalidBound, key)
	}
	pos, err := db.boundColumn(schema, key)
	if err != nil {
		return nil, err
	}
	c, err := db.newCollector(schema, pred, columns)
	if err != nil {
		return nil, err
	}

	if key.Value == nil {
		return timed(StepPointLookup, start, c.records), nil
	}

	idx, indexed := schema.IndexOn(key.Name)
	switch {
	case pos == schema.PrimaryKeyIndex:
		k, err := rowKey(schema.ID, key.Value)
		if err != nil {
			return nil, err
		}
		row, found, err := db.readRow(schema, k)
		if err != nil {
			return nil, err
		}
		if found {
			c.add(k, row)
		}
	case indexed:
		k, row, found, err := db.lookupIndex(schema, idx, pos, key.Value)
		if err != nil {
			return nil, err
		}
		if found {
			c.add(k, row)
		}
	default:
		eq := predicate.Compare{Position: pos, Column: key.Name, Op: query.Equal, Value: key.Value}
		filtered := &collector{pred: predicate.And(eq, c.pred), proj: c.proj, records: c.records}
		scanner, err := db.Scan(table)
		if err != nil {
			return nil, err
		}
		if err := scanner.each(filtered.add); err != nil {
			return nil, err
		}
		c = filtered
	}

	return timed(StepPointLookup, start, c.records), nil
}

// RangeScan returns the rows whose column lies in [begin, end], in column
// order. MinKey and MaxKey leave a side open. Columns without an ordered
// index are scanned in full and filtered by the bounds.
func (db *Database) RangeScan(table string, begin, end query.Attribute, pred predicate.Predicate, columns []string) (*query.Response, error) {
	start := time.Now()

	schema, err := db.schema(table)
	if err != nil {
		return nil, err
	}
	pos, err := db.boundColumn(schema, begin, end)
	if err != nil {
		return nil, err
	}
	c, err := db.newCollector(schema, pred, columns)
	if err != nil {
		return nil, err
	}

	if begin.IsMax() || end.IsMin() {
		return timed(StepRangeScan, start, c.records), nil
	}

	idx, indexed := schema.IndexOn(schema.Columns[pos].Name)
	switch {
	case pos == schema.PrimaryKeyIndex:
		lo, hi, err := keyRange(rowPrefix(schema.ID), begin, end)
		if err != nil {
			return nil, err
		}
		scanner, err := db.scanRange(schema, lo, hi)
		if err != nil {
			return nil, err
		}
		if err := scanner.each(c.add); err != nil {
			return nil, err
		}
	case indexed && idx.Kind == catalog.IndexBTree:
		lo, hi, err := keyRange(indexPrefix(idx.Kind, schema.ID, pos), begin, end)
		if err != nil {
			return nil, err
		}
		if err := db.scanIndex(schema, lo, hi, c.add); err != nil {
			return nil, err
		}
	default:
		var bounds []predicate.Predicate
		if !begin.IsMin() {
			bounds = append(bounds, predicate.Compare{Position: pos, Column: begin.Name, Op: query.GreaterEqual, Value: begin.Value})
		}
		if !end.IsMax() {
			bounds = append(bounds, predicate.Compare{Position: pos, Column: end.Name, Op: query.LessEqual, Value: end.Value})
		}
		filtered := &collector{pred: predicate.And(append(bounds, c.pred)...), proj: c.proj, records: c.records}
		scanner, err := db.Scan(table)
		if err != nil {
			return nil, err
		}
		if err := scanner.each(filtered.add); err != nil {
			return nil, err
		}
		c = filtered
	}

	return timed(StepRangeScan, start, c.records), nil
}

// keyRange maps inclusive attribute bounds onto a [lo, hi) key range under
// prefix.
func keyRange(prefix []byte, begin, end query.Attribute) ([]byte, []byte, error) {
	lo := prefix
	if !begin.IsMin() {
		k, err := tuple.AppendKey(slices.Clone(prefix), begin.Value)
		if err != nil {
			return nil, nil, err
		}
		lo = k
	}

	hi := storage.PrefixEnd(prefix)
	if !end.IsMax() {
		k, err := tuple.AppendKey(slices.Clone(prefix), end.Value)
		if err != nil {
			return nil, nil, err
		}
		hi = inclusiveEnd(k)
	}
	return lo, hi, nil
}

// scanIndex follows B+tree index entries in [lo, hi) to their rows.
func (db *Database) scanIndex(schema *catalog.Schema, lo, hi []byte, fn func([]byte, tuple.Tuple) error) error {
	it, err := db.store.NewIterator(lo, hi)
	if err != nil {
		return err
	}
	for {
		key, target, err := it.Next()
		if err != nil {
			return err
		}
		if key == nil {
			return nil
		}
		row, found, err := db.readRow(schema, target)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := fn(target, row); err != nil {
			return err
		}
	}
}

// AppendRow inserts a row whose values arrive last column first.
func (db *Database) AppendRow(table string, values []tuple.Value) error {
	row := make(tuple.Tuple, len(values))
	for i, v := range values {
		row[len(values)-1-i] = v
	}
	return db.Insert(table, row)
}

// DeleteRow removes every row whose key column equals key.Value and
// reports how many were removed.
func (db *Database) DeleteRow(table string, key query.Attribute) (int, error) {
	start := time.Now()

	resp, err := db.PointLookup(table, key, predicate.True, nil)
	if err != nil {
		return 0, err
	}

	schema, err := db.schema(table)
	if err != nil {
		return 0, err
	}

	for _, row := range resp.Records {
		k, err := rowKey(schema.ID, row[schema.PrimaryKeyIndex])
		if err != nil {
			return 0, err
		}
		if err := db.removeRow(schema, k, row); err != nil {
			return 0, err
		}
	}

	metrics.ObserveStep(StepDelete, time.Since(start))
	db.logger.Debug("rows deleted", "table", table, "column", key.Name, "rows", len(resp.Records))
	return len(resp.Records), nil
}

// DropTable removes the table's rows, its index entries and its schema.
func (db *Database) DropTable(table string) error {
	schema, err := db.schema(table)
	if err != nil {
		return err
	}

	prefixes := [][]byte{rowPrefix(schema.ID)}
	for _, idx := range schema.Indexes {
		prefixes = append(prefixes, indexPrefix(idx.Kind, schema.ID, schema.ColumnIndex(idx.Column)))
	}

	var keys [][]byte
	for _, prefix := range prefixes {
		it, err := db.store.NewPrefixIterator(prefix)
		if err != nil {
			return err
		}
		err = it.Each(func(key, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			return err
		}
	}

	for _, key := range keys {
		if _, err := db.store.Delete(key); err != nil {
			return err
		}
	}

	if err := db.catalog.DropTable(table); err != nil {
		return err
	}
	db.logger.Debug("table dropped", "table", table, "keys", len(keys))
	return nil
}

func (db *Database) ListTables() ([]string, error) {
	return db.catalog.ListTables(), nil
}
