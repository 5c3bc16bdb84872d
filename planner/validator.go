package planner

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrSchema         = errors.New("planner: schema error")
	ErrTableNotFound  = fmt.Errorf("%w: table not found", ErrSchema)
	ErrColumnNotFound = fmt.Errorf("%w: column not found", ErrSchema)
)

// Validator checks statement names against the catalog. It only reads.
type Validator struct {
	engine Engine
}

func NewValidator(engine Engine) *Validator {
	return &Validator{engine: engine}
}

func (v *Validator) ValidateTable(name string) error {
	ok, err := v.engine.IsTable(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return nil
}

// ValidateColumns fails on the first column the table does not have.
func (v *Validator) ValidateColumns(table string, columns []string) error {
	if err := v.ValidateTable(table); err != nil {
		return err
	}

	attributes, err := v.engine.TableAttributes(table)
	if err != nil {
		return err
	}
	for _, c := range columns {
		if !slices.Contains(attributes, c) {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, c)
		}
	}
	return nil
}
