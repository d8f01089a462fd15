package domain

// The field catalog enumerates every choice field in the configuration. Each
// enum value doubles as the token written to the solver deck, so validation
// and serialization consult the same tables.

// ElementType selects the mesh element discretization.
type ElementType string

const (
	// ElementQuad4 is the four-node quadrilateral element.
	ElementQuad4 ElementType = "4NodeQuad"
	// ElementTri3 is the three-node triangle element.
	ElementTri3 ElementType = "3NodeTri"
	// ElementTri6 is the six-node triangle element.
	ElementTri6 ElementType = "6NodeTri"
)

// ElementTypes returns the supported element types in catalog order.
func ElementTypes() []ElementType {
	return []ElementType{ElementQuad4, ElementTri3, ElementTri6}
}

// Valid reports whether the element type is a catalog member.
func (e ElementType) Valid() bool {
	switch e {
	case ElementQuad4, ElementTri3, ElementTri6:
		return true
	}
	return false
}

// SimulationType selects steady or transient time marching.
type SimulationType string

const (
	SimulationTransient SimulationType = "transient"
	SimulationSteady    SimulationType = "steady"
)

// SimulationTypes returns the supported simulation types in catalog order.
func SimulationTypes() []SimulationType {
	return []SimulationType{SimulationTransient, SimulationSteady}
}

// Valid reports whether the simulation type is a catalog member.
func (s SimulationType) Valid() bool {
	return s == SimulationTransient || s == SimulationSteady
}

// FluidEquation selects the governing flow equations.
type FluidEquation string

const (
	// FluidNavierStokes is the incompressible Navier-Stokes system.
	FluidNavierStokes FluidEquation = "navierStokes"
	// FluidCompressibleNS is the compressible Navier-Stokes system.
	FluidCompressibleNS FluidEquation = "compressibleNS"
	// FluidEuler is the inviscid Euler system.
	FluidEuler FluidEquation = "euler"
	// FluidStokes is the creeping-flow Stokes system.
	FluidStokes FluidEquation = "stokes"
)

// FluidEquations returns the supported fluid equations in catalog order.
func FluidEquations() []FluidEquation {
	return []FluidEquation{FluidNavierStokes, FluidCompressibleNS, FluidEuler, FluidStokes}
}

// Valid reports whether the fluid equation is a catalog member.
func (f FluidEquation) Valid() bool {
	switch f {
	case FluidNavierStokes, FluidCompressibleNS, FluidEuler, FluidStokes:
		return true
	}
	return false
}

// MeshEquation selects the mesh deformation treatment.
type MeshEquation string

const (
	MeshNone MeshEquation = "none"
	MeshALE  MeshEquation = "ale"
	// MeshPrescribed deforms the mesh through linear elasticity driven by
	// prescribed boundary motion.
	MeshPrescribed MeshEquation = "linearElasticPrescribed"
	// MeshLinearElastic deforms the mesh through free linear elasticity.
	MeshLinearElastic MeshEquation = "linearElastic"
)

// MeshEquations returns the supported mesh equations in catalog order.
func MeshEquations() []MeshEquation {
	return []MeshEquation{MeshNone, MeshALE, MeshPrescribed, MeshLinearElastic}
}

// Valid reports whether the mesh equation is a catalog member.
func (m MeshEquation) Valid() bool {
	switch m {
	case MeshNone, MeshALE, MeshPrescribed, MeshLinearElastic:
		return true
	}
	return false
}

// AcousticEquation selects the acoustic analogy solved alongside the flow.
type AcousticEquation string

const (
	AcousticNone            AcousticEquation = "none"
	AcousticLinearAcoustics AcousticEquation = "linearAcoustics"
	// AcousticLPCE is the linearized perturbed compressible equation system.
	// It is the only choice that consumes the NRBC block and the acoustic
	// potential initial condition.
	AcousticLPCE         AcousticEquation = "lpce"
	AcousticHelmholtz    AcousticEquation = "helmholtz"
	AcousticWaveEquation AcousticEquation = "waveEquation"
)

// AcousticEquations returns the supported acoustic equations in catalog order.
func AcousticEquations() []AcousticEquation {
	return []AcousticEquation{AcousticNone, AcousticLinearAcoustics, AcousticLPCE, AcousticHelmholtz, AcousticWaveEquation}
}

// Valid reports whether the acoustic equation is a catalog member.
func (a AcousticEquation) Valid() bool {
	switch a {
	case AcousticNone, AcousticLinearAcoustics, AcousticLPCE, AcousticHelmholtz, AcousticWaveEquation:
		return true
	}
	return false
}

// LinearSolver selects the linear system solution method.
type LinearSolver string

const (
	LinearGMRES    LinearSolver = "gmres"
	LinearBiCGStab LinearSolver = "bicgstab"
	LinearDirect   LinearSolver = "direct"
)

// LinearSolvers returns the supported linear solvers in catalog order.
func LinearSolvers() []LinearSolver {
	return []LinearSolver{LinearGMRES, LinearBiCGStab, LinearDirect}
}

// Valid reports whether the linear solver is a catalog member.
func (l LinearSolver) Valid() bool {
	switch l {
	case LinearGMRES, LinearBiCGStab, LinearDirect:
		return true
	}
	return false
}

// OutputFormat selects the solver's field output file format.
type OutputFormat string

const (
	OutputPLT OutputFormat = "plt"
	OutputVTK OutputFormat = "vtk"
	OutputCSV OutputFormat = "csv"
)

// OutputFormats returns the supported output formats in catalog order.
func OutputFormats() []OutputFormat {
	return []OutputFormat{OutputPLT, OutputVTK, OutputCSV}
}

// Valid reports whether the output format is a catalog member.
func (o OutputFormat) Valid() bool {
	switch o {
	case OutputPLT, OutputVTK, OutputCSV:
		return true
	}
	return false
}

// ValidDimensions reports whether the spatial dimension count is supported.
func ValidDimensions(n int) bool { return n == 2 || n == 3 }

// VariableFamily groups solution variables into the deck's boundary condition
// sections.
type VariableFamily string

const (
	// FamilyFlow covers the velocity components.
	FamilyFlow VariableFamily = "flow"
	// FamilyMesh covers the mesh displacement components.
	FamilyMesh VariableFamily = "mesh"
	// FamilyAcoustic covers the acoustic potential.
	FamilyAcoustic VariableFamily = "acoustic"
)

// VariableFamilies returns the boundary condition families in deck order.
func VariableFamilies() []VariableFamily {
	return []VariableFamily{FamilyFlow, FamilyMesh, FamilyAcoustic}
}

// FieldVariable identifies a solution variable a boundary condition applies to.
type FieldVariable string

const (
	VarXVelocity FieldVariable = "xVelocity"
	VarYVelocity FieldVariable = "yVelocity"
	VarZVelocity FieldVariable = "zVelocity"
	VarXDisp     FieldVariable = "xDisp"
	VarYDisp     FieldVariable = "yDisp"
	VarZDisp     FieldVariable = "zDisp"
	// VarAcousticPotential is the scalar acoustic potential.
	VarAcousticPotential FieldVariable = "acousticPotential"
)

// FieldVariables returns all solution variables in deck order. Variables of
// the same family are contiguous.
func FieldVariables() []FieldVariable {
	return []FieldVariable{
		VarXVelocity, VarYVelocity, VarZVelocity,
		VarXDisp, VarYDisp, VarZDisp,
		VarAcousticPotential,
	}
}

// FamilyVariables returns the variables belonging to one family in deck order.
func FamilyVariables(f VariableFamily) []FieldVariable {
	var out []FieldVariable
	for _, v := range FieldVariables() {
		if v.Family() == f {
			out = append(out, v)
		}
	}
	return out
}

// Valid reports whether the variable is a catalog member.
func (v FieldVariable) Valid() bool {
	switch v {
	case VarXVelocity, VarYVelocity, VarZVelocity, VarXDisp, VarYDisp, VarZDisp, VarAcousticPotential:
		return true
	}
	return false
}

// Family returns the boundary condition family the variable belongs to.
// Unknown variables map to FamilyFlow; callers should check Valid first.
func (v FieldVariable) Family() VariableFamily {
	switch v {
	case VarXDisp, VarYDisp, VarZDisp:
		return FamilyMesh
	case VarAcousticPotential:
		return FamilyAcoustic
	default:
		return FamilyFlow
	}
}

// ConditionKind identifies how a boundary condition constrains its variable.
type ConditionKind string

const (
	// KindNone marks a placeholder entry that is never serialized.
	KindNone ConditionKind = "none"
	// KindDirichlet fixes the variable to a value on the boundary.
	KindDirichlet ConditionKind = "dirichlet"
	// KindMatchMeshVel equates the flow velocity with the mesh velocity.
	// Valid for velocity variables only.
	KindMatchMeshVel ConditionKind = "matchmeshvel"
	// KindPrescribed drives the displacement through a motion definition
	// referenced by tag. Valid for displacement variables only.
	KindPrescribed ConditionKind = "prescribed"
)

// ConditionKinds returns all condition kinds in catalog order.
func ConditionKinds() []ConditionKind {
	return []ConditionKind{KindNone, KindDirichlet, KindMatchMeshVel, KindPrescribed}
}

// Valid reports whether the kind is a catalog member.
func (k ConditionKind) Valid() bool {
	switch k {
	case KindNone, KindDirichlet, KindMatchMeshVel, KindPrescribed:
		return true
	}
	return false
}

// KindsFor returns the condition kinds compatible with a variable's family.
func KindsFor(v FieldVariable) []ConditionKind {
	switch v.Family() {
	case FamilyMesh:
		return []ConditionKind{KindNone, KindDirichlet, KindPrescribed}
	case FamilyAcoustic:
		return []ConditionKind{KindNone, KindDirichlet}
	default:
		return []ConditionKind{KindNone, KindDirichlet, KindMatchMeshVel}
	}
}

// KindAllowed reports whether the kind is compatible with the variable.
func KindAllowed(v FieldVariable, k ConditionKind) bool {
	for _, allowed := range KindsFor(v) {
		if allowed == k {
			return true
		}
	}
	return false
}
