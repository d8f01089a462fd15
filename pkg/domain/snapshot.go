package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Snapshot is the configuration aggregate root. It owns every section and
// collection by value and is the single unit handed to validation and deck
// rendering. Collection order is insertion order; Seq labels are derived from
// position and recomputed by Normalize after any structural change.
type Snapshot struct {
	Geometry      GeometrySettings    `json:"geometry"`
	Solver        SolverSettings      `json:"solver"`
	Fluid         FluidProperties     `json:"fluid"`
	Initial       InitialConditions   `json:"initial_conditions"`
	BoundaryFiles []BoundaryFile      `json:"boundary_files"`
	Conditions    []BoundaryCondition `json:"boundary_conditions"`
	Motions       []PrescribedMotion  `json:"prescribed_motions"`
	Probes        []Probe             `json:"probes"`
	Surfaces      []Surface           `json:"surfaces"`
}

// Clone returns a deep copy sharing no slice storage with the receiver.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.BoundaryFiles = append([]BoundaryFile(nil), s.BoundaryFiles...)
	out.Conditions = append([]BoundaryCondition(nil), s.Conditions...)
	out.Motions = append([]PrescribedMotion(nil), s.Motions...)
	out.Probes = append([]Probe(nil), s.Probes...)
	out.Surfaces = append([]Surface(nil), s.Surfaces...)
	return out
}

// Normalize recomputes every derived Seq label from current collection order:
// 1-based, contiguous, insertion order preserved. Condition labels count per
// variable. Running it twice yields the same labels.
func (s *Snapshot) Normalize() {
	for i := range s.BoundaryFiles {
		s.BoundaryFiles[i].Seq = i + 1
	}
	perVar := make(map[FieldVariable]int, len(s.Conditions))
	for i := range s.Conditions {
		perVar[s.Conditions[i].Variable]++
		s.Conditions[i].Seq = perVar[s.Conditions[i].Variable]
	}
	for i := range s.Probes {
		s.Probes[i].Seq = i + 1
	}
	for i := range s.Surfaces {
		s.Surfaces[i].Seq = i + 1
	}
}

// ConditionsFor returns the conditions applying to one variable in insertion
// order.
func (s Snapshot) ConditionsFor(v FieldVariable) []BoundaryCondition {
	var out []BoundaryCondition
	for _, c := range s.Conditions {
		if c.Variable == v {
			out = append(out, c)
		}
	}
	return out
}

// MotionByTag looks up a prescribed motion definition by its tag.
func (s Snapshot) MotionByTag(tag int) (PrescribedMotion, bool) {
	for _, m := range s.Motions {
		if m.Tag == tag {
			return m, true
		}
	}
	return PrescribedMotion{}, false
}

// MotionsByTag returns the motion definitions in ascending tag order.
// Definitions sharing a tag keep their insertion order.
func (s Snapshot) MotionsByTag() []PrescribedMotion {
	out := append([]PrescribedMotion(nil), s.Motions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Fingerprint returns a stable content hash of the snapshot. Two snapshots
// with identical field values share a fingerprint.
func (s Snapshot) Fingerprint() (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// DefaultSnapshot returns a configuration seeded with the authoring defaults:
// a transient incompressible 2D setup with one empty boundary file slot and
// no optional entries.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Geometry: GeometrySettings{Element: ElementQuad4},
		Solver: SolverSettings{
			Simulation:           SimulationTransient,
			Fluid:                FluidNavierStokes,
			Mesh:                 MeshNone,
			Acoustic:             AcousticNone,
			Dimensions:           2,
			NonlinearIterMin:     1,
			NonlinearIterMax:     10,
			NonlinearTolerance:   0.0005,
			TimeStepSize:         0.01,
			MaxTimeSteps:         10,
			RhoInfinity:          0,
			Linear:               LinearGMRES,
			LinearTolerance:      0.0005,
			LinearIterMax:        30,
			LinearRestartIter:    30,
			RestartEnabled:       false,
			RestartStep:          20,
			RestartOutputFreq:    100,
			Output:               OutputVTK,
			OutputStartStep:      5,
			OutputFreq:           1,
			IntegratedOutputFreq: 1,
			NRBC: NRBCSettings{
				InnerRadius: 10,
				OuterRadius: 15,
			},
		},
		Fluid: FluidProperties{
			Density:      1000,
			Velocity:     1,
			Viscosity:    0.9091,
			Length:       1,
			Gamma:        1.4,
			SpeedOfSound: 340,
		},
		Initial:       InitialConditions{XVelocity: 1},
		BoundaryFiles: []BoundaryFile{{Seq: 1}},
	}
}

// DefaultBoundaryCondition returns the prefilled record for a newly added
// condition row on the given variable.
func DefaultBoundaryCondition(v FieldVariable) BoundaryCondition {
	return BoundaryCondition{Variable: v, Kind: KindNone}
}

// DefaultPrescribedMotion returns the prefilled record for a newly added
// motion definition. The tag is left for the caller to assign.
func DefaultPrescribedMotion() PrescribedMotion {
	return PrescribedMotion{
		Heave:          MotionComponent{Amplitude: 1, Frequency: 0.2, Phase: 90},
		Pitch:          MotionComponent{Amplitude: 30, Frequency: 0.2},
		Morph:          MotionComponent{Amplitude: 20, Frequency: 0.2},
		MorphDivisions: 99,
	}
}
