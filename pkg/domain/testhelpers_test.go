package domain

import "testing"

// mustNoError simplifies tests that expect helper methods to succeed.
func mustNoError(t *testing.T, label string, err error) {
	t.Helper()
	if err != nil {
		if label == "" {
			t.Fatalf("unexpected error: %v", err)
		}
		t.Fatalf("%s: %v", label, err)
	}
}

// snapshotView adapts a Snapshot to the RuleView interface for rule tests.
type snapshotView struct{ s Snapshot }

func (v snapshotView) Geometry() GeometrySettings           { return v.s.Geometry }
func (v snapshotView) Solver() SolverSettings               { return v.s.Solver }
func (v snapshotView) Fluid() FluidProperties               { return v.s.Fluid }
func (v snapshotView) InitialConditions() InitialConditions { return v.s.Initial }
func (v snapshotView) ListBoundaryFiles() []BoundaryFile    { return v.s.BoundaryFiles }
func (v snapshotView) ListConditions() []BoundaryCondition  { return v.s.Conditions }
func (v snapshotView) ListConditionsFor(fv FieldVariable) []BoundaryCondition {
	return v.s.ConditionsFor(fv)
}
func (v snapshotView) ListMotions() []PrescribedMotion { return v.s.Motions }
func (v snapshotView) ListProbes() []Probe             { return v.s.Probes }
func (v snapshotView) ListSurfaces() []Surface         { return v.s.Surfaces }

func (v snapshotView) FindBoundaryFile(id string) (BoundaryFile, bool) {
	for _, f := range v.s.BoundaryFiles {
		if f.ID == id {
			return f, true
		}
	}
	return BoundaryFile{}, false
}

func (v snapshotView) FindCondition(id string) (BoundaryCondition, bool) {
	for _, c := range v.s.Conditions {
		if c.ID == id {
			return c, true
		}
	}
	return BoundaryCondition{}, false
}

func (v snapshotView) FindMotion(id string) (PrescribedMotion, bool) {
	for _, m := range v.s.Motions {
		if m.ID == id {
			return m, true
		}
	}
	return PrescribedMotion{}, false
}

func (v snapshotView) FindMotionByTag(tag int) (PrescribedMotion, bool) {
	return v.s.MotionByTag(tag)
}
