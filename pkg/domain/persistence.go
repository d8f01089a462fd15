package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Structural changes renumber the owning
// collection before the transaction commits, so labels are never observed
// with gaps.
type Transaction interface {
	Snapshot() TransactionView
	SetGeometry(GeometrySettings) (GeometrySettings, error)
	SetSolver(SolverSettings) (SolverSettings, error)
	SetFluid(FluidProperties) (FluidProperties, error)
	SetInitialConditions(InitialConditions) (InitialConditions, error)
	CreateBoundaryFile(BoundaryFile) (BoundaryFile, error)
	UpdateBoundaryFile(id string, mutator func(*BoundaryFile) error) (BoundaryFile, error)
	DeleteBoundaryFile(id string) error
	CreateCondition(BoundaryCondition) (BoundaryCondition, error)
	UpdateCondition(id string, mutator func(*BoundaryCondition) error) (BoundaryCondition, error)
	DeleteCondition(id string) error
	CreateMotion(PrescribedMotion) (PrescribedMotion, error)
	UpdateMotion(id string, mutator func(*PrescribedMotion) error) (PrescribedMotion, error)
	DeleteMotion(id string) error
	CreateProbe(Probe) (Probe, error)
	UpdateProbe(id string, mutator func(*Probe) error) (Probe, error)
	DeleteProbe(id string) error
	CreateSurface(Surface) (Surface, error)
	UpdateSurface(id string, mutator func(*Surface) error) (Surface, error)
	DeleteSurface(id string) error
}

// TransactionView provides read-only access to transaction state for rules
// and serialization.
type TransactionView interface {
	RuleView
	// Config returns the full configuration aggregate as a value copy.
	Config() Snapshot
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	ExportState(ctx context.Context) (Snapshot, error)
	ImportState(ctx context.Context, snapshot Snapshot) error
	Geometry() GeometrySettings
	Solver() SolverSettings
	Fluid() FluidProperties
	InitialConditions() InitialConditions
	GetBoundaryFile(id string) (BoundaryFile, bool)
	ListBoundaryFiles() []BoundaryFile
	ListConditions() []BoundaryCondition
	ListMotions() []PrescribedMotion
	ListProbes() []Probe
	ListSurfaces() []Surface
}
