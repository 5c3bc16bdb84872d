package planner

import (
	"fmt"
	"strings"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/query"
)

type Path uint8

const (
	PathFullScan Path = iota
	PathPointLookup
	PathRangeScan
)

func (p Path) String() string {
	switch p {
	case PathFullScan:
		return "full_scan"
	case PathPointLookup:
		return "point_lookup"
	case PathRangeScan:
		return "range_scan"
	}
	return fmt.Sprintf("Path(%d)", p)
}

// GroupPlan is the access path chosen for one OR-group. Driving is nil for
// a full scan. Begin and End are only set for a range scan.
type GroupPlan struct {
	Path     Path
	Driving  *query.Condition
	Residual query.Group
	Begin    query.Attribute
	End      query.Attribute
}

// Exclusive reports whether the range scan bound is the driving value
// itself, which range scans include and strict comparators must not.
func (p GroupPlan) Exclusive() bool {
	if p.Path != PathRangeScan || p.Driving == nil {
		return false
	}
	return p.Driving.Op == query.Less || p.Driving.Op == query.Greater
}

func (p GroupPlan) String() string {
	var b strings.Builder
	b.WriteString(p.Path.String())
	switch p.Path {
	case PathPointLookup:
		fmt.Fprintf(&b, " %s = %s", p.Driving.Column, query.FormatValue(p.Driving.Value))
	case PathRangeScan:
		fmt.Fprintf(&b, " %s [%s, %s]", p.Driving.Column, p.Begin, p.End)
		if p.Exclusive() {
			fmt.Fprintf(&b, " excluding %s", query.FormatValue(p.Driving.Value))
		}
	}
	if len(p.Residual) > 0 {
		fmt.Fprintf(&b, " filter %s", p.Residual)
	}
	return b.String()
}

// PlanGroup picks the access path of one conjunction. The first condition
// on an indexed column drives it, every other condition is residual.
func PlanGroup(group query.Group, indexed map[string]catalog.IndexKind) GroupPlan {
	plan := GroupPlan{Path: PathFullScan, Residual: query.Group{}}

	for i := range group {
		cond := group[i]
		if _, ok := indexed[cond.Column]; ok && plan.Driving == nil {
			plan.Driving = &cond
			continue
		}
		plan.Residual = append(plan.Residual, cond)
	}

	if plan.Driving == nil {
		return plan
	}

	d := plan.Driving
	switch d.Op {
	case query.Equal:
		plan.Path = PathPointLookup
	case query.Less, query.LessEqual:
		plan.Path = PathRangeScan
		plan.Begin = query.MinKey(d.Column)
		plan.End = query.Key(d.Column, d.Value)
	case query.Greater, query.GreaterEqual:
		plan.Path = PathRangeScan
		plan.Begin = query.Key(d.Column, d.Value)
		plan.End = query.MaxKey(d.Column)
	}
	return plan
}

// PlanSelect plans every group in order. An empty constraint set is a
// single unfiltered full scan.
func PlanSelect(where query.Constraints, indexed map[string]catalog.IndexKind) []GroupPlan {
	if len(where) == 0 {
		return []GroupPlan{{Path: PathFullScan, Residual: query.Group{}}}
	}

	plans := make([]GroupPlan, len(where))
	for i, group := range where {
		plans[i] = PlanGroup(group, indexed)
	}
	return plans
}
