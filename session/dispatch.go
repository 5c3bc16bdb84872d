package session

import (
	"fmt"
	"slices"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/planner"
	"github.com/rizalta/toysql/predicate"
	"github.com/rizalta/toysql/query"
	"github.com/rizalta/toysql/sql"
	"github.com/rizalta/toysql/tuple"
)

func (s *Session) execute(stmt sql.Statement) error {
	switch st := stmt.(type) {
	case sql.CreateTable:
		return s.createTable(st)
	case sql.CreateIndex:
		return s.createIndex(st)
	case sql.Select:
		if st.Explain {
			return s.explain(st)
		}
		return s.selectRows(st)
	case sql.SelectBetween:
		return s.selectBetween(st)
	case sql.Insert:
		return s.insert(st)
	case sql.BulkLoad:
		return s.bulkLoad(st)
	case sql.Delete:
		return s.delete(st)
	case sql.DropTable:
		return s.dropTable(st)
	case sql.ShowTables:
		return s.showTables()
	}
	return fmt.Errorf("%w: unsupported statement %s", sql.ErrSyntax, stmt.Kind())
}

// output records a query result together with the table directory.
func (s *Session) output(resp *query.Response, columns []string) error {
	tables, err := s.engine.ListTables()
	if err != nil {
		return err
	}

	s.response.Records = resp.Records
	s.response.QueryTimes = resp.Times
	s.response.ColumnNames = columns
	s.response.TableNames = tables
	s.response.Affected = 0
	return nil
}

// mutated replaces the last query result with a count of written rows.
func (s *Session) mutated(rows int) error {
	tables, err := s.engine.ListTables()
	if err != nil {
		return err
	}
	s.response.Records = nil
	s.response.QueryTimes = nil
	s.response.ColumnNames = nil
	s.response.TableNames = tables
	s.response.Affected = rows
	return nil
}

// createTable honors the first column flagged as primary key. Later flags
// are ignored. A table needs one.
func (s *Session) createTable(st sql.CreateTable) error {
	types := make([]catalog.DataType, len(st.Columns))
	names := make([]string, len(st.Columns))
	pk := ""
	for i, c := range st.Columns {
		if c.IsPrimaryKey && pk == "" {
			pk = c.Name
		}
		types[i] = c.Type
		names[i] = c.Name
	}

	if pk == "" {
		return fmt.Errorf("%w: table %s: %w", planner.ErrSchema, st.Name, catalog.ErrNoPrimaryKey)
	}

	if err := s.engine.CreateTable(st.Name, pk, types, names); err != nil {
		return err
	}
	s.logger.Info("table created", "table", st.Name, "pk", pk)
	return s.mutated(0)
}

func (s *Session) createIndex(st sql.CreateIndex) error {
	if err := s.validator.ValidateColumns(st.Table, []string{st.Column}); err != nil {
		return err
	}
	if err := s.engine.CreateIndex(st.Table, st.Column, st.Using); err != nil {
		return err
	}
	s.logger.Info("index created", "table", st.Table, "column", st.Column, "kind", st.Using)
	return s.mutated(0)
}

func (s *Session) selectRows(st sql.Select) error {
	resp, columns, err := s.planner.Select(st.Table, st.Columns, st.Where)
	if err != nil {
		return err
	}
	return s.output(resp, columns)
}

func (s *Session) explain(st sql.Select) error {
	plans, _, err := s.planner.Plan(st.Table, st.Columns, st.Where)
	if err != nil {
		return err
	}

	records := make([]tuple.Tuple, len(plans))
	for i, p := range plans {
		records[i] = tuple.Tuple{int64(i + 1), p.Path.String(), p.String()}
	}
	return s.output(&query.Response{Records: records, Times: query.Timings{}}, []string{"group", "path", "plan"})
}

// selectBetween is one range scan with literal bounds and no residual.
func (s *Session) selectBetween(st sql.SelectBetween) error {
	columns, err := s.planner.Projection(st.Table, st.Columns)
	if err != nil {
		return err
	}
	if err := s.validator.ValidateColumns(st.Table, []string{st.Column}); err != nil {
		return err
	}

	begin := query.Key(st.Column, st.Begin)
	end := query.Key(st.Column, st.End)
	resp, err := s.engine.RangeScan(st.Table, begin, end, predicate.True, columns)
	if err != nil {
		return err
	}
	return s.output(resp, columns)
}

// insert hands values to the engine last column first.
func (s *Session) insert(st sql.Insert) error {
	if err := s.validator.ValidateTable(st.Table); err != nil {
		return err
	}

	values := slices.Clone(st.Values)
	slices.Reverse(values)
	if err := s.engine.AppendRow(st.Table, values); err != nil {
		return err
	}
	return s.mutated(1)
}

// bulkLoad drops the quote characters around the file name.
func (s *Session) bulkLoad(st sql.BulkLoad) error {
	if err := s.validator.ValidateTable(st.Table); err != nil {
		return err
	}
	if len(st.File) < 2 {
		return fmt.Errorf("%w: bad file name %s", sql.ErrSyntax, st.File)
	}

	path := st.File[1 : len(st.File)-1]
	n, err := s.engine.BulkLoadCSV(st.Table, path)
	if err != nil {
		return err
	}
	s.logger.Info("bulk load", "table", st.Table, "path", path, "rows", n)
	return s.mutated(n)
}

// delete removes the rows matching the first condition of the first
// group, taken as an equality. The rest of the constraints is ignored.
func (s *Session) delete(st sql.Delete) error {
	if len(st.Where) == 0 || len(st.Where[0]) == 0 {
		return fmt.Errorf("%w: delete needs a condition", sql.ErrSyntax)
	}
	cond := st.Where[0][0]
	if err := s.validator.ValidateColumns(st.Table, []string{cond.Column}); err != nil {
		return err
	}

	n, err := s.engine.DeleteRow(st.Table, query.Key(cond.Column, cond.Value))
	if err != nil {
		return err
	}
	s.logger.Info("rows deleted", "table", st.Table, "column", cond.Column, "rows", n)
	return s.mutated(n)
}

func (s *Session) dropTable(st sql.DropTable) error {
	if err := s.engine.DropTable(st.Name); err != nil {
		return err
	}
	s.logger.Info("table dropped", "table", st.Name)
	return s.mutated(0)
}

func (s *Session) showTables() error {
	tables, err := s.engine.ListTables()
	if err != nil {
		return err
	}

	records := make([]tuple.Tuple, len(tables))
	for i, t := range tables {
		records[i] = tuple.Tuple{t}
	}
	return s.output(&query.Response{Records: records, Times: query.Timings{}}, []string{"table"})
}
