// Package domain defines the configuration entities, enumerated field catalog,
// validation primitives, and persistence contracts used by flowdeck.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the configuration domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityBoundaryFile identifies a geometry boundary node-list file entry.
	EntityBoundaryFile EntityType = "boundary_file"
	// EntityBoundaryCondition identifies a boundary condition entry.
	EntityBoundaryCondition EntityType = "boundary_condition"
	// EntityPrescribedMotion identifies a prescribed motion definition.
	EntityPrescribedMotion EntityType = "prescribed_motion"
	// EntityProbe identifies a time-history probe output entry.
	EntityProbe EntityType = "probe"
	// EntitySurface identifies an integrated surface output entry.
	EntitySurface EntityType = "surface"
	// EntityGeometry identifies the geometry settings section.
	EntityGeometry EntityType = "geometry"
	// EntitySolver identifies the solver settings section.
	EntitySolver EntityType = "solver"
	// EntityFluid identifies the fluid properties section.
	EntityFluid EntityType = "fluid"
	// EntityInitialConditions identifies the initial conditions section.
	EntityInitialConditions EntityType = "initial_conditions"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit and render behavior.
const (
	// SeverityBlock blocks transaction commit and deck rendering.
	SeverityBlock Severity = "block"
	// SeverityWarn surfaces a warning but allows the operation.
	SeverityWarn Severity = "warn"
	// SeverityLog records informational findings such as documented overrides.
	SeverityLog Severity = "log"
)

// Base contains common fields for all collection records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BoundaryFile references a node-list file defining one geometry boundary.
// The path is opaque to flowdeck; the solver resolves it. Seq is the 1-based
// position within the collection and is renumbered on every structural change.
type BoundaryFile struct {
	Base
	Seq  int    `json:"seq"`
	Path string `json:"path"`
}

// Label returns the derived display label for the file's current position.
func (f BoundaryFile) Label() string { return fmt.Sprintf("B-%d", f.Seq) }

// Stem returns the file name without directory or extension, the default
// boundary reference offered for conditions attached to this file.
func (f BoundaryFile) Stem() string {
	base := f.Path
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' || base[i] == '\\' {
			base = base[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// BoundaryCondition constrains one solution variable on one boundary.
// Seq is the 1-based position within the variable's own ordering. MotionTag
// links displacement conditions to a PrescribedMotion definition; zero means
// no prescribed motion.
type BoundaryCondition struct {
	Base
	Variable  FieldVariable `json:"variable"`
	Seq       int           `json:"seq"`
	Kind      ConditionKind `json:"kind"`
	Boundary  string        `json:"boundary"`
	Value     float64       `json:"value"`
	MotionTag int           `json:"motion_tag"`
}

// Label returns the derived display label for the condition's current position.
func (c BoundaryCondition) Label() string { return fmt.Sprintf("B-%d", c.Seq) }

// MotionComponent describes one harmonic motion component.
type MotionComponent struct {
	Amplitude float64 `json:"amplitude"`
	Frequency float64 `json:"frequency"`
	Phase     float64 `json:"phase"`
}

// PrescribedMotion defines a rigid-plus-morphing boundary motion referenced by
// displacement boundary conditions through its tag. Tags are positive and
// unique within a configuration.
type PrescribedMotion struct {
	Base
	Tag            int             `json:"tag"`
	Heave          MotionComponent `json:"heave"`
	Pitch          MotionComponent `json:"pitch"`
	Morph          MotionComponent `json:"morph"`
	MorphDivisions int             `json:"morph_divisions"`
	MorphPosition  float64         `json:"morph_position"`
	LeadingEdgeX   float64         `json:"leading_edge_x"`
	LeadingEdgeY   float64         `json:"leading_edge_y"`
}

// Probe names a node-list file receiving time-history output.
type Probe struct {
	Base
	Seq  int    `json:"seq"`
	Path string `json:"path"`
}

// Surface names a node-list file receiving integrated surface output.
type Surface struct {
	Base
	Seq  int    `json:"seq"`
	Path string `json:"path"`
}

// GeometrySettings holds the mesh file references and element discretization.
type GeometrySettings struct {
	CoordinateFile   string      `json:"coordinate_file"`
	ConnectivityFile string      `json:"connectivity_file"`
	Element          ElementType `json:"element"`
}

// NRBCSettings parameterizes the acoustic non-reflecting boundary treatment.
// The block is consumed by the solver only for the LPCE acoustic equation.
type NRBCSettings struct {
	CentreX     float64 `json:"centre_x"`
	CentreY     float64 `json:"centre_y"`
	CentreZ     float64 `json:"centre_z"`
	InnerRadius float64 `json:"inner_radius"`
	OuterRadius float64 `json:"outer_radius"`
}

// SolverSettings is the flat record of solver controls written to the deck in
// a fixed declaration order.
type SolverSettings struct {
	Simulation           SimulationType   `json:"simulation"`
	Fluid                FluidEquation    `json:"fluid_equation"`
	Mesh                 MeshEquation     `json:"mesh_equation"`
	Acoustic             AcousticEquation `json:"acoustic_equation"`
	Dimensions           int              `json:"dimensions"`
	NonlinearIterMin     int              `json:"nonlinear_iter_min"`
	NonlinearIterMax     int              `json:"nonlinear_iter_max"`
	NonlinearTolerance   float64          `json:"nonlinear_tolerance"`
	TimeStepSize         float64          `json:"time_step_size"`
	MaxTimeSteps         int              `json:"max_time_steps"`
	RhoInfinity          float64          `json:"rho_infinity"`
	Linear               LinearSolver     `json:"linear_solver"`
	LinearTolerance      float64          `json:"linear_tolerance"`
	LinearIterMax        int              `json:"linear_iter_max"`
	LinearRestartIter    int              `json:"linear_restart_iter"`
	RestartEnabled       bool             `json:"restart_enabled"`
	RestartStep          int              `json:"restart_step"`
	RestartOutputFreq    int              `json:"restart_output_freq"`
	Output               OutputFormat     `json:"output_format"`
	OutputStartStep      int              `json:"output_start_step"`
	OutputFreq           int              `json:"output_freq"`
	IntegratedOutputFreq int              `json:"integrated_output_freq"`
	NRBC                 NRBCSettings     `json:"nrbc"`
}

// FluidProperties holds the dimensional reference quantities. Velocity and
// Length feed the non-dimensional calculator only; the rest are written to
// the deck.
type FluidProperties struct {
	Density      float64 `json:"density"`
	Velocity     float64 `json:"velocity"`
	Viscosity    float64 `json:"viscosity"`
	Length       float64 `json:"length"`
	Gamma        float64 `json:"gamma"`
	SpeedOfSound float64 `json:"speed_of_sound"`
}

// InitialConditions seeds the solution fields at the first time step. The
// acoustic potential is written only when the acoustic equation is LPCE.
type InitialConditions struct {
	Pressure      float64 `json:"pressure"`
	XVelocity     float64 `json:"x_velocity"`
	YVelocity     float64 `json:"y_velocity"`
	ZVelocity     float64 `json:"z_velocity"`
	XDisplacement float64 `json:"x_displacement"`
	YDisplacement float64 `json:"y_displacement"`
	ZDisplacement float64 `json:"z_displacement"`
	Potential     float64 `json:"potential"`
}

// Action enumerates mutation kinds captured in Change records.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity or section was updated.
	ActionUpdate Action = "update"
	// ActionDelete indicates an entity was removed.
	ActionDelete Action = "delete"
)

// Change records a single mutation applied within a transaction. Before and
// After carry JSON snapshots of the affected record.
type Change struct {
	Entity EntityType    `json:"entity"`
	Action Action        `json:"action"`
	Before ChangePayload `json:"before"`
	After  ChangePayload `json:"after"`
}

// Violation reports a failed rule evaluation or validation finding.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from rule evaluation and snapshot validation.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the subset of violations at warning severity.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "operation blocked by validation rules"
}

// MinimumCountError rejects a removal that would breach a collection's
// structural floor. The owning transaction performs no mutation.
type MinimumCountError struct {
	Entity  EntityType
	Minimum int
}

func (e MinimumCountError) Error() string {
	return fmt.Sprintf("at least %d %s entry required", e.Minimum, e.Entity)
}

// DivisionByZeroError reports a non-dimensional quantity whose divisor is zero.
// No partial result accompanies it.
type DivisionByZeroError struct {
	Quantity string
	Divisor  string
}

func (e DivisionByZeroError) Error() string {
	return fmt.Sprintf("cannot compute %s: %s is zero", e.Quantity, e.Divisor)
}
