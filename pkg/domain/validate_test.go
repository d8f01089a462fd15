package domain

import "testing"

func TestEffectiveKind(t *testing.T) {
	cases := []struct {
		name      string
		condition BoundaryCondition
		want      ConditionKind
	}{
		{"placeholder stays", BoundaryCondition{Variable: VarXDisp, Kind: KindNone, MotionTag: 4}, KindNone},
		{"flow dirichlet stays", BoundaryCondition{Variable: VarXVelocity, Kind: KindDirichlet}, KindDirichlet},
		{"flow ignores tag", BoundaryCondition{Variable: VarXVelocity, Kind: KindDirichlet, MotionTag: 2}, KindDirichlet},
		{"prescribed tag zero falls back", BoundaryCondition{Variable: VarXDisp, Kind: KindPrescribed, MotionTag: 0}, KindDirichlet},
		{"prescribed with tag", BoundaryCondition{Variable: VarXDisp, Kind: KindPrescribed, MotionTag: 1}, KindPrescribed},
		{"positive tag forces prescribed", BoundaryCondition{Variable: VarZDisp, Kind: KindDirichlet, MotionTag: 3}, KindPrescribed},
		{"acoustic dirichlet stays", BoundaryCondition{Variable: VarAcousticPotential, Kind: KindDirichlet, MotionTag: 9}, KindDirichlet},
	}
	for _, tc := range cases {
		if got := EffectiveKind(tc.condition); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestValidatePrescribedOnVelocityIsFatal(t *testing.T) {
	s := DefaultSnapshot()
	s.Conditions = []BoundaryCondition{{Variable: VarXVelocity, Kind: KindPrescribed, MotionTag: 1}}

	res := ValidateSnapshot(s)
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if res.Violations[0].Rule != "invalid_type_for_variable" {
		t.Fatalf("expected invalid_type_for_variable, got %+v", res.Violations[0])
	}
}

func TestValidateDanglingTagWarns(t *testing.T) {
	s := DefaultSnapshot()
	s.Conditions = []BoundaryCondition{{Variable: VarXDisp, Kind: KindPrescribed, MotionTag: 7}}

	res := ValidateSnapshot(s)
	if res.HasBlocking() {
		t.Fatalf("dangling tag must not block, got %+v", res.Violations)
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "dangling_tag_reference" {
		t.Fatalf("expected dangling_tag_reference warning, got %+v", res.Violations)
	}

	s.Motions = []PrescribedMotion{{Tag: 7}}
	if res := ValidateSnapshot(s); len(res.Violations) != 0 {
		t.Fatalf("defined tag must validate cleanly, got %+v", res.Violations)
	}
}

func TestValidateTagZeroOverrideIsLogged(t *testing.T) {
	s := DefaultSnapshot()
	s.Conditions = []BoundaryCondition{{Variable: VarYDisp, Kind: KindPrescribed, MotionTag: 0, Value: 2.5}}

	res := ValidateSnapshot(s)
	if res.HasBlocking() || len(res.Warnings()) != 0 {
		t.Fatalf("tag 0 override must not block or warn, got %+v", res.Violations)
	}
	if len(res.Violations) != 1 || res.Violations[0].Rule != "tag_zero_override" || res.Violations[0].Severity != SeverityLog {
		t.Fatalf("expected tag_zero_override log entry, got %+v", res.Violations)
	}
}

func TestValidateCollectsExhaustively(t *testing.T) {
	s := DefaultSnapshot()
	s.Geometry.Element = "hex"
	s.Solver.Linear = "cg"
	s.Conditions = []BoundaryCondition{
		{Variable: VarXVelocity, Kind: KindPrescribed},
		{Variable: VarXDisp, Kind: KindPrescribed, MotionTag: 3},
		{Variable: "vorticity", Kind: KindDirichlet},
	}

	res := ValidateSnapshot(s)
	byRule := map[string]int{}
	for _, v := range res.Violations {
		byRule[v.Rule]++
	}
	if byRule["field_catalog"] != 3 {
		t.Fatalf("expected element, solver, and variable catalog findings, got %+v", res.Violations)
	}
	if byRule["invalid_type_for_variable"] != 1 || byRule["dangling_tag_reference"] != 1 {
		t.Fatalf("expected compatibility and dangling findings together, got %+v", res.Violations)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
}

func TestValidateMotionTags(t *testing.T) {
	s := DefaultSnapshot()
	s.Motions = []PrescribedMotion{{Tag: 2}, {Tag: 2}, {Tag: 0}, {Tag: -1}}

	res := ValidateSnapshot(s)
	byRule := map[string]int{}
	for _, v := range res.Violations {
		byRule[v.Rule]++
	}
	if byRule["motion_tag_unique"] != 1 {
		t.Fatalf("duplicate tag should be reported once, got %+v", res.Violations)
	}
	if byRule["motion_tag_positive"] != 2 {
		t.Fatalf("non-positive tags should each be reported, got %+v", res.Violations)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
}

func TestValidateNegativeConditionTag(t *testing.T) {
	s := DefaultSnapshot()
	s.Conditions = []BoundaryCondition{{Variable: VarXDisp, Kind: KindDirichlet, MotionTag: -2}}

	res := ValidateSnapshot(s)
	if !res.HasBlocking() {
		t.Fatalf("negative condition tag must block, got %+v", res.Violations)
	}
}
