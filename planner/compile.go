package planner

import (
	"github.com/rizalta/toysql/predicate"
	"github.com/rizalta/toysql/query"
)

// compile turns conditions into one conjunction over table rows. No
// conditions compile to predicate.True.
func (p *Planner) compile(table string, conds []query.Condition) (predicate.Predicate, error) {
	terms := make([]predicate.Predicate, 0, len(conds))
	for _, c := range conds {
		pred, err := p.engine.Comparator(table, c.Op, c.Column, c.Value)
		if err != nil {
			return nil, err
		}
		terms = append(terms, pred)
	}
	return predicate.And(terms...), nil
}

// filter is the predicate applied to rows fetched through plan's access
// path. Strict range bounds are enforced here.
func (p *Planner) filter(table string, plan GroupPlan) (predicate.Predicate, error) {
	conds := plan.Residual
	if plan.Exclusive() {
		conds = append(query.Group{*plan.Driving}, plan.Residual...)
	}
	return p.compile(table, conds)
}
