package planner

import (
	"log/slog"
	"time"

	"github.com/rizalta/toysql/logging"
	"github.com/rizalta/toysql/metrics"
	"github.com/rizalta/toysql/query"
)

type Planner struct {
	engine    Engine
	validator *Validator
	logger    *slog.Logger
}

func New(engine Engine, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = logging.Get()
	}
	return &Planner{
		engine:    engine,
		validator: NewValidator(engine),
		logger:    logger.With("component", "planner"),
	}
}

func (p *Planner) Validator() *Validator {
	return p.validator
}

// Projection validates the requested columns and returns them in schema
// order. No columns means all of them.
func (p *Planner) Projection(table string, columns []string) ([]string, error) {
	if err := p.validator.ValidateTable(table); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return p.engine.TableAttributes(table)
	}

	sorted, err := p.engine.SortAttributes(table, columns)
	if err != nil {
		return nil, err
	}
	if err := p.validator.ValidateColumns(table, sorted); err != nil {
		return nil, err
	}
	return sorted, nil
}

// Plan validates the statement and chooses an access path per OR-group
// without touching any rows.
func (p *Planner) Plan(table string, columns []string, where query.Constraints) ([]GroupPlan, []string, error) {
	projection, err := p.Projection(table, columns)
	if err != nil {
		return nil, nil, err
	}
	if err := p.validator.ValidateColumns(table, where.Columns()); err != nil {
		return nil, nil, err
	}

	indexed, err := p.engine.IndexedColumns(table)
	if err != nil {
		return nil, nil, err
	}
	return PlanSelect(where, indexed), projection, nil
}

// Select answers "SELECT columns FROM table WHERE where". The returned
// columns name the fields of every record.
func (p *Planner) Select(table string, columns []string, where query.Constraints) (*query.Response, []string, error) {
	plans, projection, err := p.Plan(table, columns, where)
	if err != nil {
		return nil, nil, err
	}

	resp, err := p.Execute(table, projection, plans)
	if err != nil {
		return nil, nil, err
	}
	return resp, projection, nil
}

// Execute runs plans in order and merges their results.
func (p *Planner) Execute(table string, columns []string, plans []GroupPlan) (*query.Response, error) {
	start := time.Now()
	m := newMerger()

	for i, plan := range plans {
		resp, err := p.executeGroup(table, columns, plan)
		if err != nil {
			return nil, err
		}
		p.logger.Debug("group executed",
			"table", table,
			"group", i,
			"plan", plan.String(),
			"rows", len(resp.Records),
		)
		m.add(resp)
	}

	resp := m.response()
	p.logger.Info("select finished",
		"table", table,
		"groups", len(plans),
		"rows", len(resp.Records),
		"elapsed", time.Since(start),
	)
	return resp, nil
}

func (p *Planner) executeGroup(table string, columns []string, plan GroupPlan) (*query.Response, error) {
	filter, err := p.filter(table, plan)
	if err != nil {
		return nil, err
	}
	metrics.RecordAccessPath(plan.Path.String())

	switch plan.Path {
	case PathPointLookup:
		key := query.Key(plan.Driving.Column, plan.Driving.Value)
		return p.engine.PointLookup(table, key, filter, columns)
	case PathRangeScan:
		return p.engine.RangeScan(table, plan.Begin, plan.End, filter, columns)
	}
	return p.engine.Load(table, columns, filter)
}
