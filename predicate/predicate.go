// Package predicate provides row filters that can be built once and
// evaluated many times.
package predicate

import (
	"strings"

	"github.com/rizalta/toysql/query"
	"github.com/rizalta/toysql/tuple"
)

type Predicate interface {
	Evaluate(row tuple.Tuple) bool
	String() string
}

type constant bool

const (
	True  constant = true
	False constant = false
)

func (c constant) Evaluate(tuple.Tuple) bool { return bool(c) }

func (c constant) String() string {
	if c {
		return "TRUE"
	}
	return "FALSE"
}

// Compare tests the value at Position of a row against Value. A NULL
// operand or a value of another type never satisfies it.
type Compare struct {
	Position int
	Column   string
	Op       query.Comparator
	Value    tuple.Value
}

func (c Compare) Evaluate(row tuple.Tuple) bool {
	if c.Position < 0 || c.Position >= len(row) {
		return false
	}
	cmp, err := tuple.Compare(row[c.Position], c.Value)
	if err != nil {
		return false
	}
	return c.Op.Holds(cmp)
}

func (c Compare) String() string {
	return query.Condition{Column: c.Column, Op: c.Op, Value: c.Value}.String()
}

// Conjunction holds when every term holds. Evaluation stops at the first
// false term.
type Conjunction []Predicate

func (c Conjunction) Evaluate(row tuple.Tuple) bool {
	for _, p := range c {
		if !p.Evaluate(row) {
			return false
		}
	}
	return true
}

func (c Conjunction) String() string {
	return join(c, " AND ")
}

// Disjunction holds when any term holds. Evaluation stops at the first
// true term.
type Disjunction []Predicate

func (d Disjunction) Evaluate(row tuple.Tuple) bool {
	for _, p := range d {
		if p.Evaluate(row) {
			return true
		}
	}
	return false
}

func (d Disjunction) String() string {
	return join(d, " OR ")
}

func join(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// And combines ps into one predicate. And of nothing is True and And of a
// single predicate is that predicate.
func And(ps ...Predicate) Predicate {
	switch len(ps) {
	case 0:
		return True
	case 1:
		return ps[0]
	}
	return Conjunction(ps)
}

// Or combines ps into one predicate. Or of nothing is False.
func Or(ps ...Predicate) Predicate {
	switch len(ps) {
	case 0:
		return False
	case 1:
		return ps[0]
	}
	return Disjunction(ps)
}
