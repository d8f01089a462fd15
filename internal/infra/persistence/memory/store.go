// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"flowdeck/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
	_ domain.TransactionView = transactionView{}
)

type (
	// BoundaryFile aliases domain.BoundaryFile for in-memory persistence operations.
	BoundaryFile = domain.BoundaryFile
	// BoundaryCondition aliases domain.BoundaryCondition.
	BoundaryCondition = domain.BoundaryCondition
	// PrescribedMotion aliases domain.PrescribedMotion.
	PrescribedMotion = domain.PrescribedMotion
	// Probe aliases domain.Probe.
	Probe = domain.Probe
	// Surface aliases domain.Surface.
	Surface = domain.Surface
	// GeometrySettings aliases domain.GeometrySettings.
	GeometrySettings = domain.GeometrySettings
	// SolverSettings aliases domain.SolverSettings.
	SolverSettings = domain.SolverSettings
	// FluidProperties aliases domain.FluidProperties.
	FluidProperties = domain.FluidProperties
	// InitialConditions aliases domain.InitialConditions.
	InitialConditions = domain.InitialConditions
	// Snapshot aliases domain.Snapshot, the aggregate the store persists.
	Snapshot = domain.Snapshot
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// minBoundaryFiles is the structural floor of the boundary file collection.
const minBoundaryFiles = 1

// Store provides an in-memory transactional store for the configuration
// aggregate. Collection order is insertion order; derived labels are
// recomputed before any transaction commits.
type Store struct {
	mu     sync.RWMutex
	state  Snapshot
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store seeded with the authoring defaults
// and backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	s.state = s.adoptSnapshot(domain.DefaultSnapshot())
	return s
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// adoptSnapshot migrates an external snapshot into store-owned state: enum
// gaps fall back to defaults, the boundary file floor is restored, records
// without identifiers are adopted as new, and labels are renumbered.
func (s *Store) adoptSnapshot(snapshot Snapshot) Snapshot {
	state := migrateSnapshot(snapshot)
	now := s.nowFn()
	for i := range state.BoundaryFiles {
		adoptBase(&state.BoundaryFiles[i].Base, s.newID, now)
	}
	for i := range state.Conditions {
		adoptBase(&state.Conditions[i].Base, s.newID, now)
	}
	for i := range state.Motions {
		adoptBase(&state.Motions[i].Base, s.newID, now)
	}
	for i := range state.Probes {
		adoptBase(&state.Probes[i].Base, s.newID, now)
	}
	for i := range state.Surfaces {
		adoptBase(&state.Surfaces[i].Base, s.newID, now)
	}
	state.Normalize()
	return state
}

func adoptBase(b *domain.Base, newID func() string, now time.Time) {
	if b.ID == "" {
		b.ID = newID()
		b.CreatedAt = now
		b.UpdatedAt = now
	}
}

// migrateSnapshot repairs structural gaps in snapshots coming from older
// files or hand-written case documents. User-entered numeric values are left
// untouched.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	state := snapshot.Clone()
	defaults := domain.DefaultSnapshot()
	if state.Geometry.Element == "" {
		state.Geometry.Element = defaults.Geometry.Element
	}
	if state.Solver.Simulation == "" {
		state.Solver.Simulation = defaults.Solver.Simulation
	}
	if state.Solver.Fluid == "" {
		state.Solver.Fluid = defaults.Solver.Fluid
	}
	if state.Solver.Mesh == "" {
		state.Solver.Mesh = defaults.Solver.Mesh
	}
	if state.Solver.Acoustic == "" {
		state.Solver.Acoustic = defaults.Solver.Acoustic
	}
	if state.Solver.Linear == "" {
		state.Solver.Linear = defaults.Solver.Linear
	}
	if state.Solver.Output == "" {
		state.Solver.Output = defaults.Solver.Output
	}
	if state.Solver.Dimensions == 0 {
		state.Solver.Dimensions = defaults.Solver.Dimensions
	}
	if len(state.BoundaryFiles) == 0 {
		state.BoundaryFiles = append([]BoundaryFile(nil), defaults.BoundaryFiles...)
	}
	return state
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState(context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone(), nil
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(_ context.Context, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.adoptSnapshot(snapshot)
	return nil
}

// RulesEngine exposes the currently configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// Geometry returns the geometry section.
func (s *Store) Geometry() GeometrySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Geometry
}

// Solver returns the solver section.
func (s *Store) Solver() SolverSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Solver
}

// Fluid returns the fluid properties section.
func (s *Store) Fluid() FluidProperties {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Fluid
}

// InitialConditions returns the initial conditions section.
func (s *Store) InitialConditions() InitialConditions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Initial
}

// GetBoundaryFile retrieves a boundary file entry by ID.
func (s *Store) GetBoundaryFile(id string) (BoundaryFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := fileIndex(s.state.BoundaryFiles, id); i >= 0 {
		return s.state.BoundaryFiles[i], true
	}
	return BoundaryFile{}, false
}

// ListBoundaryFiles returns the boundary file entries in collection order.
func (s *Store) ListBoundaryFiles() []BoundaryFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]BoundaryFile(nil), s.state.BoundaryFiles...)
}

// ListConditions returns all boundary condition entries in collection order.
func (s *Store) ListConditions() []BoundaryCondition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]BoundaryCondition(nil), s.state.Conditions...)
}

// ListMotions returns the prescribed motion definitions in collection order.
func (s *Store) ListMotions() []PrescribedMotion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PrescribedMotion(nil), s.state.Motions...)
}

// ListProbes returns the probe entries in collection order.
func (s *Store) ListProbes() []Probe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Probe(nil), s.state.Probes...)
}

// ListSurfaces returns the surface entries in collection order.
func (s *Store) ListSurfaces() []Surface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Surface(nil), s.state.Surfaces...)
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   Snapshot
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *Snapshot
}

func newTransactionView(state *Snapshot) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) Geometry() GeometrySettings           { return v.state.Geometry }
func (v transactionView) Solver() SolverSettings               { return v.state.Solver }
func (v transactionView) Fluid() FluidProperties               { return v.state.Fluid }
func (v transactionView) InitialConditions() InitialConditions { return v.state.Initial }

// ListBoundaryFiles returns all boundary file entries within the snapshot.
func (v transactionView) ListBoundaryFiles() []BoundaryFile {
	return append([]BoundaryFile(nil), v.state.BoundaryFiles...)
}

// ListConditions returns all boundary condition entries within the snapshot.
func (v transactionView) ListConditions() []BoundaryCondition {
	return append([]BoundaryCondition(nil), v.state.Conditions...)
}

// ListConditionsFor returns the condition entries applying to one variable.
func (v transactionView) ListConditionsFor(variable domain.FieldVariable) []BoundaryCondition {
	return v.state.ConditionsFor(variable)
}

// ListMotions returns the prescribed motion definitions within the snapshot.
func (v transactionView) ListMotions() []PrescribedMotion {
	return append([]PrescribedMotion(nil), v.state.Motions...)
}

// ListProbes returns the probe entries within the snapshot.
func (v transactionView) ListProbes() []Probe {
	return append([]Probe(nil), v.state.Probes...)
}

// ListSurfaces returns the surface entries within the snapshot.
func (v transactionView) ListSurfaces() []Surface {
	return append([]Surface(nil), v.state.Surfaces...)
}

// FindBoundaryFile retrieves a boundary file entry by ID from the snapshot.
func (v transactionView) FindBoundaryFile(id string) (BoundaryFile, bool) {
	if i := fileIndex(v.state.BoundaryFiles, id); i >= 0 {
		return v.state.BoundaryFiles[i], true
	}
	return BoundaryFile{}, false
}

// FindCondition retrieves a condition entry by ID from the snapshot.
func (v transactionView) FindCondition(id string) (BoundaryCondition, bool) {
	if i := conditionIndex(v.state.Conditions, id); i >= 0 {
		return v.state.Conditions[i], true
	}
	return BoundaryCondition{}, false
}

// FindMotion retrieves a motion definition by ID from the snapshot.
func (v transactionView) FindMotion(id string) (PrescribedMotion, bool) {
	if i := motionIndex(v.state.Motions, id); i >= 0 {
		return v.state.Motions[i], true
	}
	return PrescribedMotion{}, false
}

// FindMotionByTag retrieves a motion definition by its tag.
func (v transactionView) FindMotionByTag(tag int) (PrescribedMotion, bool) {
	return v.state.MotionByTag(tag)
}

// Config returns the full configuration aggregate as a value copy.
func (v transactionView) Config() Snapshot {
	return v.state.Clone()
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.Clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.Clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

// recordChange marshals the before/after payloads and appends a change entry.
func (tx *transaction) recordChange(entity domain.EntityType, action domain.Action, before, after any) error {
	change := Change{Entity: entity, Action: action}
	if before != nil {
		payload, err := domain.NewChangePayloadFromValue(before)
		if err != nil {
			return fmt.Errorf("record %s change: %w", entity, err)
		}
		change.Before = payload
	}
	if after != nil {
		payload, err := domain.NewChangePayloadFromValue(after)
		if err != nil {
			return fmt.Errorf("record %s change: %w", entity, err)
		}
		change.After = payload
	}
	tx.changes = append(tx.changes, change)
	return nil
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// SetGeometry replaces the geometry section.
func (tx *transaction) SetGeometry(g GeometrySettings) (GeometrySettings, error) {
	if !g.Element.Valid() {
		return GeometrySettings{}, fmt.Errorf("unknown element type %q", g.Element)
	}
	before := tx.state.Geometry
	tx.state.Geometry = g
	if err := tx.recordChange(domain.EntityGeometry, domain.ActionUpdate, before, g); err != nil {
		return GeometrySettings{}, err
	}
	return g, nil
}

// SetSolver replaces the solver section.
func (tx *transaction) SetSolver(cfg SolverSettings) (SolverSettings, error) {
	if !cfg.Simulation.Valid() {
		return SolverSettings{}, fmt.Errorf("unknown simulation type %q", cfg.Simulation)
	}
	if !cfg.Fluid.Valid() {
		return SolverSettings{}, fmt.Errorf("unknown fluid equation %q", cfg.Fluid)
	}
	if !cfg.Mesh.Valid() {
		return SolverSettings{}, fmt.Errorf("unknown mesh equation %q", cfg.Mesh)
	}
	if !cfg.Acoustic.Valid() {
		return SolverSettings{}, fmt.Errorf("unknown acoustic equation %q", cfg.Acoustic)
	}
	if !domain.ValidDimensions(cfg.Dimensions) {
		return SolverSettings{}, fmt.Errorf("unsupported dimension count %d", cfg.Dimensions)
	}
	if !cfg.Linear.Valid() {
		return SolverSettings{}, fmt.Errorf("unknown linear solver %q", cfg.Linear)
	}
	if !cfg.Output.Valid() {
		return SolverSettings{}, fmt.Errorf("unknown output format %q", cfg.Output)
	}
	before := tx.state.Solver
	tx.state.Solver = cfg
	if err := tx.recordChange(domain.EntitySolver, domain.ActionUpdate, before, cfg); err != nil {
		return SolverSettings{}, err
	}
	return cfg, nil
}

// SetFluid replaces the fluid properties section.
func (tx *transaction) SetFluid(p FluidProperties) (FluidProperties, error) {
	before := tx.state.Fluid
	tx.state.Fluid = p
	if err := tx.recordChange(domain.EntityFluid, domain.ActionUpdate, before, p); err != nil {
		return FluidProperties{}, err
	}
	return p, nil
}

// SetInitialConditions replaces the initial conditions section.
func (tx *transaction) SetInitialConditions(ic InitialConditions) (InitialConditions, error) {
	before := tx.state.Initial
	tx.state.Initial = ic
	if err := tx.recordChange(domain.EntityInitialConditions, domain.ActionUpdate, before, ic); err != nil {
		return InitialConditions{}, err
	}
	return ic, nil
}

// CreateBoundaryFile appends a boundary file entry and renumbers the
// collection.
func (tx *transaction) CreateBoundaryFile(f BoundaryFile) (BoundaryFile, error) {
	if f.ID == "" {
		f.ID = tx.store.newID()
	}
	if fileIndex(tx.state.BoundaryFiles, f.ID) >= 0 {
		return BoundaryFile{}, fmt.Errorf("boundary file %q already exists", f.ID)
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	tx.state.BoundaryFiles = append(tx.state.BoundaryFiles, f)
	tx.state.Normalize()
	stored := tx.state.BoundaryFiles[len(tx.state.BoundaryFiles)-1]
	if err := tx.recordChange(domain.EntityBoundaryFile, domain.ActionCreate, nil, stored); err != nil {
		return BoundaryFile{}, err
	}
	return stored, nil
}

// UpdateBoundaryFile mutates a boundary file entry using the provided mutator.
func (tx *transaction) UpdateBoundaryFile(id string, mutator func(*BoundaryFile) error) (BoundaryFile, error) {
	idx := fileIndex(tx.state.BoundaryFiles, id)
	if idx < 0 {
		return BoundaryFile{}, fmt.Errorf("boundary file %q not found", id)
	}
	current := tx.state.BoundaryFiles[idx]
	before := current
	if err := mutator(&current); err != nil {
		return BoundaryFile{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.BoundaryFiles[idx] = current
	tx.state.Normalize()
	stored := tx.state.BoundaryFiles[idx]
	if err := tx.recordChange(domain.EntityBoundaryFile, domain.ActionUpdate, before, stored); err != nil {
		return BoundaryFile{}, err
	}
	return stored, nil
}

// DeleteBoundaryFile removes a boundary file entry. Removing the last entry
// breaches the structural floor and fails without mutation.
func (tx *transaction) DeleteBoundaryFile(id string) error {
	idx := fileIndex(tx.state.BoundaryFiles, id)
	if idx < 0 {
		return fmt.Errorf("boundary file %q not found", id)
	}
	if len(tx.state.BoundaryFiles) <= minBoundaryFiles {
		return domain.MinimumCountError{Entity: domain.EntityBoundaryFile, Minimum: minBoundaryFiles}
	}
	current := tx.state.BoundaryFiles[idx]
	tx.state.BoundaryFiles = append(tx.state.BoundaryFiles[:idx], tx.state.BoundaryFiles[idx+1:]...)
	tx.state.Normalize()
	return tx.recordChange(domain.EntityBoundaryFile, domain.ActionDelete, current, nil)
}

// CreateCondition appends a boundary condition entry on its variable.
func (tx *transaction) CreateCondition(c BoundaryCondition) (BoundaryCondition, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if conditionIndex(tx.state.Conditions, c.ID) >= 0 {
		return BoundaryCondition{}, fmt.Errorf("boundary condition %q already exists", c.ID)
	}
	if err := checkCondition(c); err != nil {
		return BoundaryCondition{}, err
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.Conditions = append(tx.state.Conditions, c)
	tx.state.Normalize()
	stored := tx.state.Conditions[len(tx.state.Conditions)-1]
	if err := tx.recordChange(domain.EntityBoundaryCondition, domain.ActionCreate, nil, stored); err != nil {
		return BoundaryCondition{}, err
	}
	return stored, nil
}

// UpdateCondition mutates a boundary condition entry using the provided
// mutator.
func (tx *transaction) UpdateCondition(id string, mutator func(*BoundaryCondition) error) (BoundaryCondition, error) {
	idx := conditionIndex(tx.state.Conditions, id)
	if idx < 0 {
		return BoundaryCondition{}, fmt.Errorf("boundary condition %q not found", id)
	}
	current := tx.state.Conditions[idx]
	before := current
	if err := mutator(&current); err != nil {
		return BoundaryCondition{}, err
	}
	if err := checkCondition(current); err != nil {
		return BoundaryCondition{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.Conditions[idx] = current
	tx.state.Normalize()
	stored := tx.state.Conditions[idx]
	if err := tx.recordChange(domain.EntityBoundaryCondition, domain.ActionUpdate, before, stored); err != nil {
		return BoundaryCondition{}, err
	}
	return stored, nil
}

// DeleteCondition removes a boundary condition entry and renumbers its
// variable's labels.
func (tx *transaction) DeleteCondition(id string) error {
	idx := conditionIndex(tx.state.Conditions, id)
	if idx < 0 {
		return fmt.Errorf("boundary condition %q not found", id)
	}
	current := tx.state.Conditions[idx]
	tx.state.Conditions = append(tx.state.Conditions[:idx], tx.state.Conditions[idx+1:]...)
	tx.state.Normalize()
	return tx.recordChange(domain.EntityBoundaryCondition, domain.ActionDelete, current, nil)
}

// CreateMotion appends a prescribed motion definition. Tag constraints are
// enforced by the rules engine at commit time.
func (tx *transaction) CreateMotion(m PrescribedMotion) (PrescribedMotion, error) {
	if m.ID == "" {
		m.ID = tx.store.newID()
	}
	if motionIndex(tx.state.Motions, m.ID) >= 0 {
		return PrescribedMotion{}, fmt.Errorf("prescribed motion %q already exists", m.ID)
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.Motions = append(tx.state.Motions, m)
	stored := tx.state.Motions[len(tx.state.Motions)-1]
	if err := tx.recordChange(domain.EntityPrescribedMotion, domain.ActionCreate, nil, stored); err != nil {
		return PrescribedMotion{}, err
	}
	return stored, nil
}

// UpdateMotion mutates a prescribed motion definition using the provided
// mutator.
func (tx *transaction) UpdateMotion(id string, mutator func(*PrescribedMotion) error) (PrescribedMotion, error) {
	idx := motionIndex(tx.state.Motions, id)
	if idx < 0 {
		return PrescribedMotion{}, fmt.Errorf("prescribed motion %q not found", id)
	}
	current := tx.state.Motions[idx]
	before := current
	if err := mutator(&current); err != nil {
		return PrescribedMotion{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.Motions[idx] = current
	if err := tx.recordChange(domain.EntityPrescribedMotion, domain.ActionUpdate, before, current); err != nil {
		return PrescribedMotion{}, err
	}
	return current, nil
}

// DeleteMotion removes a prescribed motion definition.
func (tx *transaction) DeleteMotion(id string) error {
	idx := motionIndex(tx.state.Motions, id)
	if idx < 0 {
		return fmt.Errorf("prescribed motion %q not found", id)
	}
	current := tx.state.Motions[idx]
	tx.state.Motions = append(tx.state.Motions[:idx], tx.state.Motions[idx+1:]...)
	return tx.recordChange(domain.EntityPrescribedMotion, domain.ActionDelete, current, nil)
}

// CreateProbe appends a time-history probe entry.
func (tx *transaction) CreateProbe(p Probe) (Probe, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if probeIndex(tx.state.Probes, p.ID) >= 0 {
		return Probe{}, fmt.Errorf("probe %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.Probes = append(tx.state.Probes, p)
	tx.state.Normalize()
	stored := tx.state.Probes[len(tx.state.Probes)-1]
	if err := tx.recordChange(domain.EntityProbe, domain.ActionCreate, nil, stored); err != nil {
		return Probe{}, err
	}
	return stored, nil
}

// UpdateProbe mutates a probe entry using the provided mutator.
func (tx *transaction) UpdateProbe(id string, mutator func(*Probe) error) (Probe, error) {
	idx := probeIndex(tx.state.Probes, id)
	if idx < 0 {
		return Probe{}, fmt.Errorf("probe %q not found", id)
	}
	current := tx.state.Probes[idx]
	before := current
	if err := mutator(&current); err != nil {
		return Probe{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.Probes[idx] = current
	tx.state.Normalize()
	stored := tx.state.Probes[idx]
	if err := tx.recordChange(domain.EntityProbe, domain.ActionUpdate, before, stored); err != nil {
		return Probe{}, err
	}
	return stored, nil
}

// DeleteProbe removes a probe entry and renumbers the collection.
func (tx *transaction) DeleteProbe(id string) error {
	idx := probeIndex(tx.state.Probes, id)
	if idx < 0 {
		return fmt.Errorf("probe %q not found", id)
	}
	current := tx.state.Probes[idx]
	tx.state.Probes = append(tx.state.Probes[:idx], tx.state.Probes[idx+1:]...)
	tx.state.Normalize()
	return tx.recordChange(domain.EntityProbe, domain.ActionDelete, current, nil)
}

// CreateSurface appends an integrated surface output entry.
func (tx *transaction) CreateSurface(sf Surface) (Surface, error) {
	if sf.ID == "" {
		sf.ID = tx.store.newID()
	}
	if surfaceIndex(tx.state.Surfaces, sf.ID) >= 0 {
		return Surface{}, fmt.Errorf("surface %q already exists", sf.ID)
	}
	sf.CreatedAt = tx.now
	sf.UpdatedAt = tx.now
	tx.state.Surfaces = append(tx.state.Surfaces, sf)
	tx.state.Normalize()
	stored := tx.state.Surfaces[len(tx.state.Surfaces)-1]
	if err := tx.recordChange(domain.EntitySurface, domain.ActionCreate, nil, stored); err != nil {
		return Surface{}, err
	}
	return stored, nil
}

// UpdateSurface mutates a surface entry using the provided mutator.
func (tx *transaction) UpdateSurface(id string, mutator func(*Surface) error) (Surface, error) {
	idx := surfaceIndex(tx.state.Surfaces, id)
	if idx < 0 {
		return Surface{}, fmt.Errorf("surface %q not found", id)
	}
	current := tx.state.Surfaces[idx]
	before := current
	if err := mutator(&current); err != nil {
		return Surface{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.Surfaces[idx] = current
	tx.state.Normalize()
	stored := tx.state.Surfaces[idx]
	if err := tx.recordChange(domain.EntitySurface, domain.ActionUpdate, before, stored); err != nil {
		return Surface{}, err
	}
	return stored, nil
}

// DeleteSurface removes a surface entry and renumbers the collection.
func (tx *transaction) DeleteSurface(id string) error {
	idx := surfaceIndex(tx.state.Surfaces, id)
	if idx < 0 {
		return fmt.Errorf("surface %q not found", id)
	}
	current := tx.state.Surfaces[idx]
	tx.state.Surfaces = append(tx.state.Surfaces[:idx], tx.state.Surfaces[idx+1:]...)
	tx.state.Normalize()
	return tx.recordChange(domain.EntitySurface, domain.ActionDelete, current, nil)
}

// checkCondition enforces catalog membership for stored condition fields.
// Kind compatibility with the variable stays a validator concern so callers
// can author entries first and review the full diagnostic list afterwards.
func checkCondition(c BoundaryCondition) error {
	if !c.Variable.Valid() {
		return fmt.Errorf("unknown variable %q", c.Variable)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	if c.MotionTag < 0 {
		return fmt.Errorf("motion tag %d must not be negative", c.MotionTag)
	}
	return nil
}

func fileIndex(files []BoundaryFile, id string) int {
	for i := range files {
		if files[i].ID == id {
			return i
		}
	}
	return -1
}

func conditionIndex(conditions []BoundaryCondition, id string) int {
	for i := range conditions {
		if conditions[i].ID == id {
			return i
		}
	}
	return -1
}

func motionIndex(motions []PrescribedMotion, id string) int {
	for i := range motions {
		if motions[i].ID == id {
			return i
		}
	}
	return -1
}

func probeIndex(probes []Probe, id string) int {
	for i := range probes {
		if probes[i].ID == id {
			return i
		}
	}
	return -1
}

func surfaceIndex(surfaces []Surface, id string) int {
	for i := range surfaces {
		if surfaces[i].ID == id {
			return i
		}
	}
	return -1
}
