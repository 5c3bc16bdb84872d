// Package sql is the statement front end: it turns SQL text into the
// structured statements the session executes.
package sql

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/query"
	"github.com/rizalta/toysql/tuple"
)

var (
	ErrSyntax   = errors.New("sql: syntax error")
	ErrResource = errors.New("sql: failed to build parser")
)

// Statement is one parsed statement. Kind names it for logs and metrics.
type Statement interface {
	Kind() string
}

type CreateTable struct {
	Name    string
	Columns []query.ColumnSpec
}

type CreateIndex struct {
	Name   string
	Table  string
	Column string
	Using  catalog.IndexKind
}

// Select with no Columns selects every column.
type Select struct {
	Table   string
	Columns []string
	Where   query.Constraints
	Explain bool
}

// SelectBetween is a select whose whole condition is
// "Column BETWEEN Begin AND End".
type SelectBetween struct {
	Table   string
	Columns []string
	Column  string
	Begin   tuple.Value
	End     tuple.Value
}

// Insert holds values in column order.
type Insert struct {
	Table  string
	Values []tuple.Value
}

// BulkLoad keeps File as written, quotes included.
type BulkLoad struct {
	Table string
	File  string
}

type Delete struct {
	Table string
	Where query.Constraints
}

type DropTable struct {
	Name string
}

type ShowTables struct{}

func (CreateTable) Kind() string { return "create_table" }
func (CreateIndex) Kind() string { return "create_index" }
func (s Select) Kind() string {
	if s.Explain {
		return "explain"
	}
	return "select"
}
func (SelectBetween) Kind() string { return "select_between" }
func (Insert) Kind() string { return "insert" }
func (BulkLoad) Kind() string { return "bulk_load" }
func (Delete) Kind() string { return "delete" }
func (DropTable) Kind() string { return "drop_table" }
func (ShowTables) Kind() string { return "show_tables" }

// Parse reads every statement from r. The grammar is built for this call
// only and nothing outlives it.
func Parse(r io.Reader) ([]Statement, error) {
	parser, err := buildParser()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResource, err)
	}

	ast, err := parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	stmts := make([]Statement, 0, len(ast.Statements))
	for _, s := range ast.Statements {
		stmt, err := s.convert()
		if err != nil {
			return nil, fmt.Errorf("%w at %s: %v", ErrSyntax, s.Pos, err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func ParseString(s string) ([]Statement, error) {
	return Parse(strings.NewReader(s))
}

func (s *statement) convert() (Statement, error) {
	switch {
	case s.Create != nil && s.Create.Table != nil:
		return s.Create.Table.convert()
	case s.Create != nil && s.Create.Index != nil:
		return s.Create.Index.convert()
	case s.Explain != nil:
		return s.Explain.convert(true)
	case s.Select != nil:
		return s.Select.convert(false)
	case s.Insert != nil:
		return s.Insert.convert()
	case s.Delete != nil:
		where, err := s.Delete.Where.convert()
		if err != nil {
			return nil, err
		}
		return Delete{Table: s.Delete.Table, Where: where}, nil
	case s.Drop != nil:
		return DropTable{Name: *s.Drop}, nil
	case s.Show:
		return ShowTables{}, nil
	}
	return nil, errors.New("empty statement")
}

func (c *createTable) convert() (Statement, error) {
	columns := make([]query.ColumnSpec, len(c.Columns))
	for i, def := range c.Columns {
		t, err := catalog.ParseDataType(def.Type)
		if err != nil {
			return nil, err
		}
		columns[i] = query.ColumnSpec{Name: def.Name, Type: t, IsPrimaryKey: def.PrimaryKey}
	}
	return CreateTable{Name: c.Name, Columns: columns}, nil
}

func (c *createIndex) convert() (Statement, error) {
	kind, err := catalog.ParseIndexKind(c.Kind)
	if err != nil {
		return nil, err
	}
	return CreateIndex{Name: c.Name, Table: c.Table, Column: c.Column, Using: kind}, nil
}

func (s *selectStmt) convert(explain bool) (Statement, error) {
	var columns []string
	if !s.All {
		columns = s.Columns
	}

	// a lone BETWEEN is answered by one two sided range scan
	if !explain && s.Where != nil && len(s.Where.Groups) == 1 && len(s.Where.Groups[0].Conditions) == 1 {
		if c := s.Where.Groups[0].Conditions[0]; c.Low != nil {
			begin, err := c.Low.convert()
			if err != nil {
				return nil, err
			}
			end, err := c.High.convert()
			if err != nil {
				return nil, err
			}
			return SelectBetween{Table: s.Table, Columns: columns, Column: c.Column, Begin: begin, End: end}, nil
		}
	}

	where, err := s.Where.convert()
	if err != nil {
		return nil, err
	}
	return Select{Table: s.Table, Columns: columns, Where: where, Explain: explain}, nil
}

func (s *insertStmt) convert() (Statement, error) {
	if s.File != nil {
		return BulkLoad{Table: s.Table, File: *s.File}, nil
	}

	values := make([]tuple.Value, len(s.Values))
	for i, v := range s.Values {
		val, err := v.convert()
		if err != nil {
			return nil, err
		}
		values[i] = val
	}
	return Insert{Table: s.Table, Values: values}, nil
}

func (o *orExpr) convert() (query.Constraints, error) {
	if o == nil {
		return nil, nil
	}

	constraints := make(query.Constraints, 0, len(o.Groups))
	for _, g := range o.Groups {
		group := make(query.Group, 0, len(g.Conditions))
		for _, c := range g.Conditions {
			conds, err := c.convert()
			if err != nil {
				return nil, err
			}
			group = append(group, conds...)
		}
		constraints = append(constraints, group)
	}
	return constraints, nil
}

var operators = map[string]query.Comparator{
	"=":  query.Equal,
	"<":  query.Less,
	"<=": query.LessEqual,
	">":  query.Greater,
	">=": query.GreaterEqual,
}

// convert expands BETWEEN into a pair of inclusive comparisons.
func (c *condition) convert() ([]query.Condition, error) {
	if c.Low != nil {
		low, err := c.Low.convert()
		if err != nil {
			return nil, err
		}
		high, err := c.High.convert()
		if err != nil {
			return nil, err
		}
		return []query.Condition{
			{Column: c.Column, Op: query.GreaterEqual, Value: low},
			{Column: c.Column, Op: query.LessEqual, Value: high},
		}, nil
	}

	op, ok := operators[c.Op]
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", c.Op)
	}
	v, err := c.Value.convert()
	if err != nil {
		return nil, err
	}
	return []query.Condition{{Column: c.Column, Op: op, Value: v}}, nil
}

func (v *value) convert() (tuple.Value, error) {
	switch {
	case v.Null:
		return nil, nil
	case v.True:
		return true, nil
	case v.False:
		return false, nil
	case v.Float != nil:
		if math.IsNaN(*v.Float) || math.IsInf(*v.Float, 0) {
			return nil, fmt.Errorf("float literal out of range: %v", *v.Float)
		}
		return *v.Float, nil
	case v.Int != nil:
		return *v.Int, nil
	case v.String != nil:
		return unquote(*v.String)
	}
	return nil, errors.New("empty value")
}

// unquote accepts 'single' quotes with '' escapes and "double" quotes with
// Go escapes.
func unquote(s string) (string, error) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
	}
	u, err := strconv.Unquote(s)
	if err != nil {
		return "", fmt.Errorf("bad string literal %s", s)
	}
	return u, nil
}
