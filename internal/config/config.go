// Package config reads and writes case files, the file representation of a
// solver configuration. Case files are YAML (JSON parses as a YAML subset);
// omitted fields keep the authoring defaults and enum fields carry catalog
// tokens. Record identity and sequence labels never appear in a case file,
// they belong to the runtime snapshot.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"flowdeck/pkg/domain"
)

// Case mirrors the snapshot for file authoring.
type Case struct {
	Geometry      GeometryCase    `yaml:"geometry"`
	Solver        SolverCase      `yaml:"solver"`
	Fluid         FluidCase       `yaml:"fluid"`
	Initial       InitialCase     `yaml:"initial_conditions"`
	BoundaryFiles []string        `yaml:"boundary_files"`
	Conditions    []ConditionCase `yaml:"boundary_conditions"`
	Motions       []MotionCase    `yaml:"prescribed_motions"`
	Probes        []string        `yaml:"probes"`
	Surfaces      []string        `yaml:"surfaces"`
}

// GeometryCase holds the mesh file references and element choice.
type GeometryCase struct {
	CoordinateFile   string             `yaml:"coordinate_file"`
	ConnectivityFile string             `yaml:"connectivity_file"`
	Element          domain.ElementType `yaml:"element"`
}

// SolverCase holds the solver controls in deck declaration order.
type SolverCase struct {
	Simulation           domain.SimulationType   `yaml:"simulation"`
	Fluid                domain.FluidEquation    `yaml:"fluid_equation"`
	Mesh                 domain.MeshEquation     `yaml:"mesh_equation"`
	Acoustic             domain.AcousticEquation `yaml:"acoustic_equation"`
	Dimensions           int                     `yaml:"dimensions"`
	NonlinearIterMin     int                     `yaml:"nonlinear_iter_min"`
	NonlinearIterMax     int                     `yaml:"nonlinear_iter_max"`
	NonlinearTolerance   float64                 `yaml:"nonlinear_tolerance"`
	TimeStepSize         float64                 `yaml:"time_step_size"`
	MaxTimeSteps         int                     `yaml:"max_time_steps"`
	RhoInfinity          float64                 `yaml:"rho_infinity"`
	Linear               domain.LinearSolver     `yaml:"linear_solver"`
	LinearTolerance      float64                 `yaml:"linear_tolerance"`
	LinearIterMax        int                     `yaml:"linear_iter_max"`
	LinearRestartIter    int                     `yaml:"linear_restart_iter"`
	RestartEnabled       bool                    `yaml:"restart_enabled"`
	RestartStep          int                     `yaml:"restart_step"`
	RestartOutputFreq    int                     `yaml:"restart_output_freq"`
	Output               domain.OutputFormat     `yaml:"output_format"`
	OutputStartStep      int                     `yaml:"output_start_step"`
	OutputFreq           int                     `yaml:"output_freq"`
	IntegratedOutputFreq int                     `yaml:"integrated_output_freq"`
	NRBC                 NRBCCase                `yaml:"nrbc"`
}

// NRBCCase parameterizes the acoustic non-reflecting boundary treatment.
type NRBCCase struct {
	CentreX     float64 `yaml:"centre_x"`
	CentreY     float64 `yaml:"centre_y"`
	CentreZ     float64 `yaml:"centre_z"`
	InnerRadius float64 `yaml:"inner_radius"`
	OuterRadius float64 `yaml:"outer_radius"`
}

// FluidCase holds the dimensional reference quantities.
type FluidCase struct {
	Density      float64 `yaml:"density"`
	Velocity     float64 `yaml:"velocity"`
	Viscosity    float64 `yaml:"viscosity"`
	Length       float64 `yaml:"length"`
	Gamma        float64 `yaml:"gamma"`
	SpeedOfSound float64 `yaml:"speed_of_sound"`
}

// InitialCase seeds the solution fields.
type InitialCase struct {
	Pressure      float64 `yaml:"pressure"`
	XVelocity     float64 `yaml:"x_velocity"`
	YVelocity     float64 `yaml:"y_velocity"`
	ZVelocity     float64 `yaml:"z_velocity"`
	XDisplacement float64 `yaml:"x_displacement"`
	YDisplacement float64 `yaml:"y_displacement"`
	ZDisplacement float64 `yaml:"z_displacement"`
	Potential     float64 `yaml:"potential"`
}

// ConditionCase authors one boundary condition. An omitted kind defaults to
// none, the placeholder that is never serialized.
type ConditionCase struct {
	Variable  domain.FieldVariable `yaml:"variable"`
	Kind      domain.ConditionKind `yaml:"kind"`
	Boundary  string               `yaml:"boundary"`
	Value     float64              `yaml:"value"`
	MotionTag int                  `yaml:"motion_tag"`
}

// MotionCase authors one prescribed motion definition.
type MotionCase struct {
	Tag            int                 `yaml:"tag"`
	Heave          MotionComponentCase `yaml:"heave"`
	Pitch          MotionComponentCase `yaml:"pitch"`
	Morph          MotionComponentCase `yaml:"morph"`
	MorphDivisions int                 `yaml:"morph_divisions"`
	MorphPosition  float64             `yaml:"morph_position"`
	LeadingEdgeX   float64             `yaml:"leading_edge_x"`
	LeadingEdgeY   float64             `yaml:"leading_edge_y"`
}

// MotionComponentCase authors one harmonic motion component.
type MotionComponentCase struct {
	Amplitude float64 `yaml:"amplitude"`
	Frequency float64 `yaml:"frequency"`
	Phase     float64 `yaml:"phase"`
}

// DefaultCase returns the case-file form of the default configuration.
func DefaultCase() *Case {
	return FromSnapshot(domain.DefaultSnapshot())
}

// Load reads a case file and merges it onto the defaults, so fields the file
// does not mention keep their default values. Unknown keys and enum tokens
// outside the catalog are rejected.
func Load(path string) (*Case, error) {
	//nolint:gosec // the caller names the case file to read.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}
	c := DefaultCase()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse case file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the case to path in YAML form.
func Save(path string, c *Case) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode case file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306: case files are shared documents
		return fmt.Errorf("write case file: %w", err)
	}
	return nil
}

// Validate checks every enum field against the catalog. Cross-reference
// semantics are left to snapshot validation; this guards the file contract
// only, so a typo fails at load instead of surfacing later as a finding.
func (c *Case) Validate() error {
	var errs []string
	if !c.Geometry.Element.Valid() {
		errs = append(errs, fmt.Sprintf("geometry.element: unknown element type %q", string(c.Geometry.Element)))
	}
	if !c.Solver.Simulation.Valid() {
		errs = append(errs, fmt.Sprintf("solver.simulation: unknown simulation type %q", string(c.Solver.Simulation)))
	}
	if !c.Solver.Fluid.Valid() {
		errs = append(errs, fmt.Sprintf("solver.fluid_equation: unknown fluid equation %q", string(c.Solver.Fluid)))
	}
	if !c.Solver.Mesh.Valid() {
		errs = append(errs, fmt.Sprintf("solver.mesh_equation: unknown mesh equation %q", string(c.Solver.Mesh)))
	}
	if !c.Solver.Acoustic.Valid() {
		errs = append(errs, fmt.Sprintf("solver.acoustic_equation: unknown acoustic equation %q", string(c.Solver.Acoustic)))
	}
	if !domain.ValidDimensions(c.Solver.Dimensions) {
		errs = append(errs, fmt.Sprintf("solver.dimensions: must be 2 or 3, got %d", c.Solver.Dimensions))
	}
	if !c.Solver.Linear.Valid() {
		errs = append(errs, fmt.Sprintf("solver.linear_solver: unknown linear solver %q", string(c.Solver.Linear)))
	}
	if !c.Solver.Output.Valid() {
		errs = append(errs, fmt.Sprintf("solver.output_format: unknown output format %q", string(c.Solver.Output)))
	}
	for i, cond := range c.Conditions {
		if cond.Variable == "" {
			errs = append(errs, fmt.Sprintf("boundary_conditions[%d]: missing variable", i))
		} else if !cond.Variable.Valid() {
			errs = append(errs, fmt.Sprintf("boundary_conditions[%d].variable: unknown variable %q", i, string(cond.Variable)))
		}
		if cond.Kind != "" && !cond.Kind.Valid() {
			errs = append(errs, fmt.Sprintf("boundary_conditions[%d].kind: unknown condition kind %q", i, string(cond.Kind)))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Snapshot converts the case to a runtime snapshot with derived sequence
// labels recomputed. The boundary file floor is preserved: an empty list
// yields the single empty slot.
func (c *Case) Snapshot() domain.Snapshot {
	snap := domain.DefaultSnapshot()
	snap.Geometry = domain.GeometrySettings{
		CoordinateFile:   c.Geometry.CoordinateFile,
		ConnectivityFile: c.Geometry.ConnectivityFile,
		Element:          c.Geometry.Element,
	}
	snap.Solver = domain.SolverSettings{
		Simulation:           c.Solver.Simulation,
		Fluid:                c.Solver.Fluid,
		Mesh:                 c.Solver.Mesh,
		Acoustic:             c.Solver.Acoustic,
		Dimensions:           c.Solver.Dimensions,
		NonlinearIterMin:     c.Solver.NonlinearIterMin,
		NonlinearIterMax:     c.Solver.NonlinearIterMax,
		NonlinearTolerance:   c.Solver.NonlinearTolerance,
		TimeStepSize:         c.Solver.TimeStepSize,
		MaxTimeSteps:         c.Solver.MaxTimeSteps,
		RhoInfinity:          c.Solver.RhoInfinity,
		Linear:               c.Solver.Linear,
		LinearTolerance:      c.Solver.LinearTolerance,
		LinearIterMax:        c.Solver.LinearIterMax,
		LinearRestartIter:    c.Solver.LinearRestartIter,
		RestartEnabled:       c.Solver.RestartEnabled,
		RestartStep:          c.Solver.RestartStep,
		RestartOutputFreq:    c.Solver.RestartOutputFreq,
		Output:               c.Solver.Output,
		OutputStartStep:      c.Solver.OutputStartStep,
		OutputFreq:           c.Solver.OutputFreq,
		IntegratedOutputFreq: c.Solver.IntegratedOutputFreq,
		NRBC: domain.NRBCSettings{
			CentreX:     c.Solver.NRBC.CentreX,
			CentreY:     c.Solver.NRBC.CentreY,
			CentreZ:     c.Solver.NRBC.CentreZ,
			InnerRadius: c.Solver.NRBC.InnerRadius,
			OuterRadius: c.Solver.NRBC.OuterRadius,
		},
	}
	snap.Fluid = domain.FluidProperties{
		Density:      c.Fluid.Density,
		Velocity:     c.Fluid.Velocity,
		Viscosity:    c.Fluid.Viscosity,
		Length:       c.Fluid.Length,
		Gamma:        c.Fluid.Gamma,
		SpeedOfSound: c.Fluid.SpeedOfSound,
	}
	snap.Initial = domain.InitialConditions{
		Pressure:      c.Initial.Pressure,
		XVelocity:     c.Initial.XVelocity,
		YVelocity:     c.Initial.YVelocity,
		ZVelocity:     c.Initial.ZVelocity,
		XDisplacement: c.Initial.XDisplacement,
		YDisplacement: c.Initial.YDisplacement,
		ZDisplacement: c.Initial.ZDisplacement,
		Potential:     c.Initial.Potential,
	}
	snap.BoundaryFiles = nil
	for _, path := range c.BoundaryFiles {
		snap.BoundaryFiles = append(snap.BoundaryFiles, domain.BoundaryFile{Path: path})
	}
	if len(snap.BoundaryFiles) == 0 {
		snap.BoundaryFiles = []domain.BoundaryFile{{}}
	}
	snap.Conditions = nil
	for _, cond := range c.Conditions {
		kind := cond.Kind
		if kind == "" {
			kind = domain.KindNone
		}
		snap.Conditions = append(snap.Conditions, domain.BoundaryCondition{
			Variable:  cond.Variable,
			Kind:      kind,
			Boundary:  cond.Boundary,
			Value:     cond.Value,
			MotionTag: cond.MotionTag,
		})
	}
	snap.Motions = nil
	for _, m := range c.Motions {
		snap.Motions = append(snap.Motions, domain.PrescribedMotion{
			Tag:            m.Tag,
			Heave:          domain.MotionComponent{Amplitude: m.Heave.Amplitude, Frequency: m.Heave.Frequency, Phase: m.Heave.Phase},
			Pitch:          domain.MotionComponent{Amplitude: m.Pitch.Amplitude, Frequency: m.Pitch.Frequency, Phase: m.Pitch.Phase},
			Morph:          domain.MotionComponent{Amplitude: m.Morph.Amplitude, Frequency: m.Morph.Frequency, Phase: m.Morph.Phase},
			MorphDivisions: m.MorphDivisions,
			MorphPosition:  m.MorphPosition,
			LeadingEdgeX:   m.LeadingEdgeX,
			LeadingEdgeY:   m.LeadingEdgeY,
		})
	}
	snap.Probes = nil
	for _, path := range c.Probes {
		snap.Probes = append(snap.Probes, domain.Probe{Path: path})
	}
	snap.Surfaces = nil
	for _, path := range c.Surfaces {
		snap.Surfaces = append(snap.Surfaces, domain.Surface{Path: path})
	}
	snap.Normalize()
	return snap
}

// FromSnapshot converts a runtime snapshot to its case-file form, dropping
// record identity and derived labels.
func FromSnapshot(s domain.Snapshot) *Case {
	c := &Case{
		Geometry: GeometryCase{
			CoordinateFile:   s.Geometry.CoordinateFile,
			ConnectivityFile: s.Geometry.ConnectivityFile,
			Element:          s.Geometry.Element,
		},
		Solver: SolverCase{
			Simulation:           s.Solver.Simulation,
			Fluid:                s.Solver.Fluid,
			Mesh:                 s.Solver.Mesh,
			Acoustic:             s.Solver.Acoustic,
			Dimensions:           s.Solver.Dimensions,
			NonlinearIterMin:     s.Solver.NonlinearIterMin,
			NonlinearIterMax:     s.Solver.NonlinearIterMax,
			NonlinearTolerance:   s.Solver.NonlinearTolerance,
			TimeStepSize:         s.Solver.TimeStepSize,
			MaxTimeSteps:         s.Solver.MaxTimeSteps,
			RhoInfinity:          s.Solver.RhoInfinity,
			Linear:               s.Solver.Linear,
			LinearTolerance:      s.Solver.LinearTolerance,
			LinearIterMax:        s.Solver.LinearIterMax,
			LinearRestartIter:    s.Solver.LinearRestartIter,
			RestartEnabled:       s.Solver.RestartEnabled,
			RestartStep:          s.Solver.RestartStep,
			RestartOutputFreq:    s.Solver.RestartOutputFreq,
			Output:               s.Solver.Output,
			OutputStartStep:      s.Solver.OutputStartStep,
			OutputFreq:           s.Solver.OutputFreq,
			IntegratedOutputFreq: s.Solver.IntegratedOutputFreq,
			NRBC: NRBCCase{
				CentreX:     s.Solver.NRBC.CentreX,
				CentreY:     s.Solver.NRBC.CentreY,
				CentreZ:     s.Solver.NRBC.CentreZ,
				InnerRadius: s.Solver.NRBC.InnerRadius,
				OuterRadius: s.Solver.NRBC.OuterRadius,
			},
		},
		Fluid: FluidCase{
			Density:      s.Fluid.Density,
			Velocity:     s.Fluid.Velocity,
			Viscosity:    s.Fluid.Viscosity,
			Length:       s.Fluid.Length,
			Gamma:        s.Fluid.Gamma,
			SpeedOfSound: s.Fluid.SpeedOfSound,
		},
		Initial: InitialCase{
			Pressure:      s.Initial.Pressure,
			XVelocity:     s.Initial.XVelocity,
			YVelocity:     s.Initial.YVelocity,
			ZVelocity:     s.Initial.ZVelocity,
			XDisplacement: s.Initial.XDisplacement,
			YDisplacement: s.Initial.YDisplacement,
			ZDisplacement: s.Initial.ZDisplacement,
			Potential:     s.Initial.Potential,
		},
	}
	for _, f := range s.BoundaryFiles {
		c.BoundaryFiles = append(c.BoundaryFiles, f.Path)
	}
	for _, cond := range s.Conditions {
		c.Conditions = append(c.Conditions, ConditionCase{
			Variable:  cond.Variable,
			Kind:      cond.Kind,
			Boundary:  cond.Boundary,
			Value:     cond.Value,
			MotionTag: cond.MotionTag,
		})
	}
	for _, m := range s.Motions {
		c.Motions = append(c.Motions, MotionCase{
			Tag:            m.Tag,
			Heave:          MotionComponentCase{Amplitude: m.Heave.Amplitude, Frequency: m.Heave.Frequency, Phase: m.Heave.Phase},
			Pitch:          MotionComponentCase{Amplitude: m.Pitch.Amplitude, Frequency: m.Pitch.Frequency, Phase: m.Pitch.Phase},
			Morph:          MotionComponentCase{Amplitude: m.Morph.Amplitude, Frequency: m.Morph.Frequency, Phase: m.Morph.Phase},
			MorphDivisions: m.MorphDivisions,
			MorphPosition:  m.MorphPosition,
			LeadingEdgeX:   m.LeadingEdgeX,
			LeadingEdgeY:   m.LeadingEdgeY,
		})
	}
	for _, p := range s.Probes {
		c.Probes = append(c.Probes, p.Path)
	}
	for _, srf := range s.Surfaces {
		c.Surfaces = append(c.Surfaces, srf.Path)
	}
	return c
}
