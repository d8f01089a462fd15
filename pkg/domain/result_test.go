package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestResultMergeKeepsSeverityBuckets(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{
		{Rule: "motion_tag_reference", Severity: SeverityWarn, Entity: EntityBoundaryCondition},
	}})
	if result.HasBlocking() {
		t.Fatalf("warning must not block, got %+v", result.Violations)
	}

	result.Merge(Result{Violations: []Violation{
		{Rule: "motion_tag_unique", Severity: SeverityBlock, Entity: EntityPrescribedMotion},
	}})
	if !result.HasBlocking() {
		t.Fatal("expected blocking violation after merge")
	}

	warnings := result.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "motion_tag_reference" {
		t.Fatalf("warnings = %+v", warnings)
	}
	if len(result.Violations) != 2 {
		t.Fatalf("expected both violations retained, got %d", len(result.Violations))
	}
}

func TestResultMergeEmptyIsNoop(t *testing.T) {
	result := Result{Violations: []Violation{{Rule: "field_catalog", Severity: SeverityBlock}}}
	result.Merge(Result{})
	if len(result.Violations) != 1 || result.Violations[0].Rule != "field_catalog" {
		t.Fatalf("merge of an empty result mutated the receiver: %+v", result.Violations)
	}
}

func TestRuleViolationErrorMessage(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{{Rule: "motion_tag_unique", Severity: SeverityBlock}}}}
	if err.Error() != "operation blocked by validation rules" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

// recordingRule reports one warning per evaluation and counts invocations.
type recordingRule struct {
	name  string
	calls *int
}

func (r recordingRule) Name() string { return r.name }

func (r recordingRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	*r.calls++
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type brokenRule struct{ err error }

func (brokenRule) Name() string { return "dangling_tag_reference" }

func (r brokenRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, r.err
}

func TestRulesEngineMergesInRegistrationOrder(t *testing.T) {
	var first, second int
	engine := NewRulesEngine()
	engine.Register(recordingRule{name: "motion_tag_positive", calls: &first})
	engine.Register(recordingRule{name: "motion_tag_unique", calls: &second})

	res, err := engine.Evaluate(context.Background(), snapshotView{s: DefaultSnapshot()}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if first != 1 || second != 1 {
		t.Fatalf("rule invocations = %d/%d, want 1/1", first, second)
	}
	if len(res.Violations) != 2 || res.Violations[0].Rule != "motion_tag_positive" || res.Violations[1].Rule != "motion_tag_unique" {
		t.Fatalf("violations out of order: %+v", res.Violations)
	}
}

func TestRulesEngineWrapsRuleErrors(t *testing.T) {
	cause := errors.New("view unavailable")
	engine := NewRulesEngine()
	engine.Register(brokenRule{err: cause})

	_, err := engine.Evaluate(context.Background(), snapshotView{s: DefaultSnapshot()}, nil)
	if err == nil {
		t.Fatal("expected evaluation error")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not wrapped: %v", err)
	}
	if !strings.Contains(err.Error(), "dangling_tag_reference") {
		t.Fatalf("error misses the rule name: %v", err)
	}
}
