package domain

import (
	"context"
	"fmt"
)

// RuleView is the read-only window a rule gets onto the configuration state
// it is asked to judge.
type RuleView interface {
	Geometry() GeometrySettings
	Solver() SolverSettings
	Fluid() FluidProperties
	InitialConditions() InitialConditions
	ListBoundaryFiles() []BoundaryFile
	ListConditions() []BoundaryCondition
	ListConditionsFor(v FieldVariable) []BoundaryCondition
	ListMotions() []PrescribedMotion
	ListProbes() []Probe
	ListSurfaces() []Surface
	FindBoundaryFile(id string) (BoundaryFile, bool)
	FindCondition(id string) (BoundaryCondition, bool)
	FindMotion(id string) (PrescribedMotion, bool)
	FindMotionByTag(tag int) (PrescribedMotion, bool)
}

// Rule inspects a pending change set together with the state it would
// produce and reports violations.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine runs registered rules in order and folds their findings.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine returns an engine with no rules registered.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register adds rule at the end of the evaluation order.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate runs every rule against view and merges their findings into one
// result. A rule returning an error stops the run and discards any findings
// gathered so far.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var merged Result
	for _, rule := range e.rules {
		found, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, fmt.Errorf("evaluate rule %q: %w", rule.Name(), err)
		}
		merged.Merge(found)
	}
	return merged, nil
}
