// Package query defines the structured form of a statement's constraints
// and the results the storage engine hands back.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/tuple"
)

type Comparator uint8

const (
	Equal Comparator = iota
	Less
	LessEqual
	Greater
	GreaterEqual
)

func (c Comparator) String() string {
	switch c {
	case Equal:
		return "="
	case Less:
		return "<"
	case LessEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterEqual:
		return ">="
	}
	return fmt.Sprintf("Comparator(%d)", c)
}

// Holds reports whether a three-way comparison result satisfies c.
func (c Comparator) Holds(cmp int) bool {
	switch c {
	case Equal:
		return cmp == 0
	case Less:
		return cmp < 0
	case LessEqual:
		return cmp <= 0
	case Greater:
		return cmp > 0
	case GreaterEqual:
		return cmp >= 0
	}
	return false
}

// Condition is a single "column op literal" test.
type Condition struct {
	Column string
	Op     Comparator
	Value  tuple.Value
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Column, c.Op, FormatValue(c.Value))
}

// Group is a conjunction of conditions.
type Group []Condition

func (g Group) String() string {
	parts := make([]string, len(g))
	for i, c := range g {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// Constraints is a disjunction of groups. An empty set matches every row.
type Constraints []Group

func (cs Constraints) String() string {
	parts := make([]string, len(cs))
	for i, g := range cs {
		parts[i] = "(" + g.String() + ")"
	}
	return strings.Join(parts, " OR ")
}

// Columns lists every column the constraints mention, in order of first use.
func (cs Constraints) Columns() []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, g := range cs {
		for _, c := range g {
			if _, ok := seen[c.Column]; ok {
				continue
			}
			seen[c.Column] = struct{}{}
			columns = append(columns, c.Column)
		}
	}
	return columns
}

type Bound uint8

const (
	BoundValue Bound = iota
	BoundMin
	BoundMax
)

// Attribute is a column/value pair used as a lookup key or a scan bound.
type Attribute struct {
	Name  string
	Value tuple.Value
	Bound Bound
}

func Key(name string, value tuple.Value) Attribute {
	return Attribute{Name: name, Value: value}
}

// MinKey sorts before every value of the column.
func MinKey(name string) Attribute {
	return Attribute{Name: name, Bound: BoundMin}
}

// MaxKey sorts after every value of the column.
func MaxKey(name string) Attribute {
	return Attribute{Name: name, Bound: BoundMax}
}

func (a Attribute) IsMin() bool { return a.Bound == BoundMin }
func (a Attribute) IsMax() bool { return a.Bound == BoundMax }

func (a Attribute) String() string {
	switch a.Bound {
	case BoundMin:
		return "MIN"
	case BoundMax:
		return "MAX"
	}
	return FormatValue(a.Value)
}

type ColumnSpec struct {
	Name         string
	Type         catalog.DataType
	IsPrimaryKey bool
}

// Timings maps a storage step name to the time it took.
type Timings map[string]time.Duration

type Response struct {
	Records []tuple.Tuple
	Times   Timings
}

// FormatValue renders a value the way it would be written as a literal.
func FormatValue(v tuple.Value) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", val)
	case []byte:
		return fmt.Sprintf("x'%x'", val)
	}
	return fmt.Sprint(v)
}
