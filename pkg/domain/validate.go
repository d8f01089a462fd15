package domain

import "fmt"

// EffectiveKind returns the kind a condition serializes with after the
// displacement tag rules are applied: a positive tag forces prescribed
// treatment, and a prescribed selection with tag 0 falls back to dirichlet
// semantics. Other variables and placeholder entries keep their kind.
func EffectiveKind(c BoundaryCondition) ConditionKind {
	if c.Kind == KindNone {
		return KindNone
	}
	if c.Variable.Family() == FamilyMesh {
		if c.MotionTag > 0 {
			return KindPrescribed
		}
		if c.Kind == KindPrescribed {
			return KindDirichlet
		}
	}
	return c.Kind
}

// ValidateSnapshot checks the configuration against the field catalog and the
// cross-reference rules. Findings are collected exhaustively so callers can
// surface every problem at once; nothing is mutated. Blocking findings stop
// deck rendering, warnings and log entries do not.
func ValidateSnapshot(s Snapshot) Result {
	var res Result

	if !s.Geometry.Element.Valid() {
		res.Violations = append(res.Violations, Violation{
			Rule:     "field_catalog",
			Severity: SeverityBlock,
			Message:  fmt.Sprintf("unknown element type %q", s.Geometry.Element),
			Entity:   EntityGeometry,
		})
	}
	res.Merge(validateSolver(s.Solver))
	res.Merge(validateMotionTags(s.Motions))

	for _, c := range s.Conditions {
		res.Merge(validateCondition(c, s))
	}
	return res
}

func validateSolver(cfg SolverSettings) Result {
	var res Result
	block := func(msg string) {
		res.Violations = append(res.Violations, Violation{
			Rule:     "field_catalog",
			Severity: SeverityBlock,
			Message:  msg,
			Entity:   EntitySolver,
		})
	}
	if !cfg.Simulation.Valid() {
		block(fmt.Sprintf("unknown simulation type %q", cfg.Simulation))
	}
	if !cfg.Fluid.Valid() {
		block(fmt.Sprintf("unknown fluid equation %q", cfg.Fluid))
	}
	if !cfg.Mesh.Valid() {
		block(fmt.Sprintf("unknown mesh equation %q", cfg.Mesh))
	}
	if !cfg.Acoustic.Valid() {
		block(fmt.Sprintf("unknown acoustic equation %q", cfg.Acoustic))
	}
	if !ValidDimensions(cfg.Dimensions) {
		block(fmt.Sprintf("unsupported dimension count %d", cfg.Dimensions))
	}
	if !cfg.Linear.Valid() {
		block(fmt.Sprintf("unknown linear solver %q", cfg.Linear))
	}
	if !cfg.Output.Valid() {
		block(fmt.Sprintf("unknown output format %q", cfg.Output))
	}
	return res
}

func validateMotionTags(motions []PrescribedMotion) Result {
	var res Result
	counts := make(map[int]int, len(motions))
	for _, m := range motions {
		counts[m.Tag]++
	}
	reported := make(map[int]bool)
	for _, m := range motions {
		if m.Tag <= 0 {
			res.Violations = append(res.Violations, Violation{
				Rule:     "motion_tag_positive",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("motion tag %d must be positive", m.Tag),
				Entity:   EntityPrescribedMotion,
				EntityID: m.ID,
			})
			continue
		}
		if counts[m.Tag] > 1 && !reported[m.Tag] {
			reported[m.Tag] = true
			res.Violations = append(res.Violations, Violation{
				Rule:     "motion_tag_unique",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("motion tag %d defined more than once", m.Tag),
				Entity:   EntityPrescribedMotion,
				EntityID: m.ID,
			})
		}
	}
	return res
}

func validateCondition(c BoundaryCondition, s Snapshot) Result {
	var res Result
	add := func(rule string, severity Severity, msg string) {
		res.Violations = append(res.Violations, Violation{
			Rule:     rule,
			Severity: severity,
			Message:  msg,
			Entity:   EntityBoundaryCondition,
			EntityID: c.ID,
		})
	}
	if !c.Variable.Valid() {
		add("field_catalog", SeverityBlock, fmt.Sprintf("unknown variable %q", c.Variable))
		return res
	}
	if !c.Kind.Valid() {
		add("field_catalog", SeverityBlock, fmt.Sprintf("unknown condition kind %q", c.Kind))
		return res
	}
	if !KindAllowed(c.Variable, c.Kind) {
		add("invalid_type_for_variable", SeverityBlock,
			fmt.Sprintf("condition kind %q is not valid for variable %q", c.Kind, c.Variable))
		return res
	}
	if c.Kind == KindNone || c.Variable.Family() != FamilyMesh {
		return res
	}
	if c.MotionTag < 0 {
		add("field_catalog", SeverityBlock, fmt.Sprintf("motion tag %d must not be negative", c.MotionTag))
		return res
	}
	if c.Kind == KindPrescribed && c.MotionTag == 0 {
		add("tag_zero_override", SeverityLog,
			fmt.Sprintf("prescribed selection on %s with tag 0 keeps dirichlet semantics", c.Variable))
		return res
	}
	if c.MotionTag > 0 {
		if _, ok := s.MotionByTag(c.MotionTag); !ok {
			add("dangling_tag_reference", SeverityWarn,
				fmt.Sprintf("motion tag %d is not defined; the motion section will not cover it", c.MotionTag))
		}
	}
	return res
}
