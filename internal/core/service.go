// Package core exposes the transactional authoring service for solver
// configurations: section updates, collection CRUD with stable relabeling,
// validation, derived quantities, and deck rendering. Every mutating
// operation runs inside a store transaction and is observed through the
// configured logger, metrics recorder, tracer, and audit sink.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flowdeck/internal/deck"
	"flowdeck/pkg/domain"
)

// Service exposes higher-level transactional operations over a configuration
// store. Observability hooks default to no-ops.
type Service struct {
	store   PersistentStore
	logger  Logger
	clock   Clock
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.nowFn = selectNowFunc(store, s.clock)
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects the default rule set.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(NewMemoryStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// RegisterRule adds a rule to the engine backing the store. It fails when the
// store does not expose one.
func (s *Service) RegisterRule(rule Rule) error {
	engine := extractRulesEngine(s.store)
	if engine == nil {
		return errors.New("store does not expose a rules engine")
	}
	engine.Register(rule)
	return nil
}

// operationMetadata maps operation names to the audited entity and action.
// Operations absent from the map produce no audit entries.
var operationMetadata = map[string]struct {
	Entity EntityType
	Action Action
}{
	"update_geometry":           {Entity: EntityGeometry, Action: ActionUpdate},
	"update_solver":             {Entity: EntitySolver, Action: ActionUpdate},
	"update_fluid":              {Entity: EntityFluid, Action: ActionUpdate},
	"update_initial_conditions": {Entity: EntityInitialConditions, Action: ActionUpdate},
	"create_boundary_file":      {Entity: EntityBoundaryFile, Action: ActionCreate},
	"update_boundary_file":      {Entity: EntityBoundaryFile, Action: ActionUpdate},
	"delete_boundary_file":      {Entity: EntityBoundaryFile, Action: ActionDelete},
	"create_condition":          {Entity: EntityBoundaryCondition, Action: ActionCreate},
	"update_condition":          {Entity: EntityBoundaryCondition, Action: ActionUpdate},
	"delete_condition":          {Entity: EntityBoundaryCondition, Action: ActionDelete},
	"create_motion":             {Entity: EntityPrescribedMotion, Action: ActionCreate},
	"update_motion":             {Entity: EntityPrescribedMotion, Action: ActionUpdate},
	"delete_motion":             {Entity: EntityPrescribedMotion, Action: ActionDelete},
	"create_probe":              {Entity: EntityProbe, Action: ActionCreate},
	"update_probe":              {Entity: EntityProbe, Action: ActionUpdate},
	"delete_probe":              {Entity: EntityProbe, Action: ActionDelete},
	"create_surface":            {Entity: EntitySurface, Action: ActionCreate},
	"update_surface":            {Entity: EntitySurface, Action: ActionUpdate},
	"delete_surface":            {Entity: EntitySurface, Action: ActionDelete},
}

// run executes fn inside a store transaction and threads the outcome through
// the tracer, metrics recorder, logger, and audit sink. entityID is evaluated
// after fn so create operations can report generated identifiers; nil means
// the operation has no single subject record.
func (s *Service) run(ctx context.Context, operation string, entityID func() string, fn func(tx Transaction) error) (Result, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	s.logger.Debug("operation started", "operation", operation)

	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)

	id := ""
	if entityID != nil {
		id = entityID()
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
		s.recordAuditError(ctx, operation, id, duration, err)
		return res, err
	}
	s.logger.Info("operation complete", "operation", operation, "duration_ms", durationMillis(duration))
	s.recordAuditSuccess(ctx, operation, id, duration)
	return res, nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	meta, ok := operationMetadata[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.Entity,
		Action:    meta.Action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.nowFn(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, duration time.Duration, err error) {
	meta, ok := operationMetadata[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.Entity,
		Action:    meta.Action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Duration:  duration,
		Timestamp: s.nowFn(),
		Error:     err.Error(),
	})
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// UpdateGeometry replaces the geometry settings.
func (s *Service) UpdateGeometry(ctx context.Context, settings GeometrySettings) (GeometrySettings, Result, error) {
	var updated GeometrySettings
	res, err := s.run(ctx, "update_geometry", nil, func(tx Transaction) error {
		var err error
		updated, err = tx.SetGeometry(settings)
		return err
	})
	return updated, res, err
}

// UpdateSolver replaces the solver settings.
func (s *Service) UpdateSolver(ctx context.Context, settings SolverSettings) (SolverSettings, Result, error) {
	var updated SolverSettings
	res, err := s.run(ctx, "update_solver", nil, func(tx Transaction) error {
		var err error
		updated, err = tx.SetSolver(settings)
		return err
	})
	return updated, res, err
}

// UpdateFluid replaces the fluid properties.
func (s *Service) UpdateFluid(ctx context.Context, props FluidProperties) (FluidProperties, Result, error) {
	var updated FluidProperties
	res, err := s.run(ctx, "update_fluid", nil, func(tx Transaction) error {
		var err error
		updated, err = tx.SetFluid(props)
		return err
	})
	return updated, res, err
}

// UpdateInitialConditions replaces the initial condition values.
func (s *Service) UpdateInitialConditions(ctx context.Context, ic InitialConditions) (InitialConditions, Result, error) {
	var updated InitialConditions
	res, err := s.run(ctx, "update_initial_conditions", nil, func(tx Transaction) error {
		var err error
		updated, err = tx.SetInitialConditions(ic)
		return err
	})
	return updated, res, err
}

// CreateBoundaryFile appends a boundary file entry.
func (s *Service) CreateBoundaryFile(ctx context.Context, file BoundaryFile) (BoundaryFile, Result, error) {
	var created BoundaryFile
	res, err := s.run(ctx, "create_boundary_file", func() string { return created.ID }, func(tx Transaction) error {
		var err error
		created, err = tx.CreateBoundaryFile(file)
		return err
	})
	return created, res, err
}

// UpdateBoundaryFile mutates a boundary file entry.
func (s *Service) UpdateBoundaryFile(ctx context.Context, id string, mutator func(*BoundaryFile) error) (BoundaryFile, Result, error) {
	var updated BoundaryFile
	res, err := s.run(ctx, "update_boundary_file", func() string { return id }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateBoundaryFile(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteBoundaryFile removes a boundary file entry by ID. The collection
// floor is enforced by the store.
func (s *Service) DeleteBoundaryFile(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_boundary_file", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteBoundaryFile(id)
	})
}

// DeleteBoundaryFileAt removes the boundary file at the given 1-based label.
func (s *Service) DeleteBoundaryFileAt(ctx context.Context, seq int) (Result, error) {
	var id string
	return s.run(ctx, "delete_boundary_file", func() string { return id }, func(tx Transaction) error {
		for _, f := range tx.Snapshot().ListBoundaryFiles() {
			if f.Seq == seq {
				id = f.ID
				return tx.DeleteBoundaryFile(f.ID)
			}
		}
		return fmt.Errorf("no boundary file at position %d", seq)
	})
}

// CreateCondition appends a boundary condition for its variable.
func (s *Service) CreateCondition(ctx context.Context, cond BoundaryCondition) (BoundaryCondition, Result, error) {
	var created BoundaryCondition
	res, err := s.run(ctx, "create_condition", func() string { return created.ID }, func(tx Transaction) error {
		var err error
		created, err = tx.CreateCondition(cond)
		return err
	})
	return created, res, err
}

// UpdateCondition mutates a boundary condition.
func (s *Service) UpdateCondition(ctx context.Context, id string, mutator func(*BoundaryCondition) error) (BoundaryCondition, Result, error) {
	var updated BoundaryCondition
	res, err := s.run(ctx, "update_condition", func() string { return id }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateCondition(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteCondition removes a boundary condition by ID.
func (s *Service) DeleteCondition(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_condition", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteCondition(id)
	})
}

// DeleteConditionAt removes the condition at the given 1-based label within
// one variable's ordering.
func (s *Service) DeleteConditionAt(ctx context.Context, variable FieldVariable, seq int) (Result, error) {
	var id string
	return s.run(ctx, "delete_condition", func() string { return id }, func(tx Transaction) error {
		for _, c := range tx.Snapshot().ListConditionsFor(variable) {
			if c.Seq == seq {
				id = c.ID
				return tx.DeleteCondition(c.ID)
			}
		}
		return fmt.Errorf("no %s condition at position %d", variable, seq)
	})
}

// CreateMotion appends a prescribed motion definition.
func (s *Service) CreateMotion(ctx context.Context, motion PrescribedMotion) (PrescribedMotion, Result, error) {
	var created PrescribedMotion
	res, err := s.run(ctx, "create_motion", func() string { return created.ID }, func(tx Transaction) error {
		var err error
		created, err = tx.CreateMotion(motion)
		return err
	})
	return created, res, err
}

// UpdateMotion mutates a prescribed motion definition.
func (s *Service) UpdateMotion(ctx context.Context, id string, mutator func(*PrescribedMotion) error) (PrescribedMotion, Result, error) {
	var updated PrescribedMotion
	res, err := s.run(ctx, "update_motion", func() string { return id }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateMotion(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteMotion removes a prescribed motion definition by ID.
func (s *Service) DeleteMotion(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_motion", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteMotion(id)
	})
}

// DeleteMotionByTag removes the motion definition carrying the given tag.
func (s *Service) DeleteMotionByTag(ctx context.Context, tag int) (Result, error) {
	var id string
	return s.run(ctx, "delete_motion", func() string { return id }, func(tx Transaction) error {
		m, ok := tx.Snapshot().FindMotionByTag(tag)
		if !ok {
			return fmt.Errorf("no motion with tag %d", tag)
		}
		id = m.ID
		return tx.DeleteMotion(m.ID)
	})
}

// CreateProbe appends a time-history probe entry.
func (s *Service) CreateProbe(ctx context.Context, probe Probe) (Probe, Result, error) {
	var created Probe
	res, err := s.run(ctx, "create_probe", func() string { return created.ID }, func(tx Transaction) error {
		var err error
		created, err = tx.CreateProbe(probe)
		return err
	})
	return created, res, err
}

// UpdateProbe mutates a probe entry.
func (s *Service) UpdateProbe(ctx context.Context, id string, mutator func(*Probe) error) (Probe, Result, error) {
	var updated Probe
	res, err := s.run(ctx, "update_probe", func() string { return id }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateProbe(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteProbe removes a probe entry by ID.
func (s *Service) DeleteProbe(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_probe", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteProbe(id)
	})
}

// DeleteProbeAt removes the probe at the given 1-based label.
func (s *Service) DeleteProbeAt(ctx context.Context, seq int) (Result, error) {
	var id string
	return s.run(ctx, "delete_probe", func() string { return id }, func(tx Transaction) error {
		for _, p := range tx.Snapshot().ListProbes() {
			if p.Seq == seq {
				id = p.ID
				return tx.DeleteProbe(p.ID)
			}
		}
		return fmt.Errorf("no probe at position %d", seq)
	})
}

// CreateSurface appends an integrated surface output entry.
func (s *Service) CreateSurface(ctx context.Context, surface Surface) (Surface, Result, error) {
	var created Surface
	res, err := s.run(ctx, "create_surface", func() string { return created.ID }, func(tx Transaction) error {
		var err error
		created, err = tx.CreateSurface(surface)
		return err
	})
	return created, res, err
}

// UpdateSurface mutates a surface output entry.
func (s *Service) UpdateSurface(ctx context.Context, id string, mutator func(*Surface) error) (Surface, Result, error) {
	var updated Surface
	res, err := s.run(ctx, "update_surface", func() string { return id }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateSurface(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteSurface removes a surface output entry by ID.
func (s *Service) DeleteSurface(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_surface", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteSurface(id)
	})
}

// DeleteSurfaceAt removes the surface output entry at the given 1-based label.
func (s *Service) DeleteSurfaceAt(ctx context.Context, seq int) (Result, error) {
	var id string
	return s.run(ctx, "delete_surface", func() string { return id }, func(tx Transaction) error {
		for _, sf := range tx.Snapshot().ListSurfaces() {
			if sf.Seq == seq {
				id = sf.ID
				return tx.DeleteSurface(sf.ID)
			}
		}
		return fmt.Errorf("no surface at position %d", seq)
	})
}

// Snapshot returns a value copy of the full stored configuration.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.store.ExportState(ctx)
}

// ImportState replaces the stored configuration with the supplied snapshot.
func (s *Service) ImportState(ctx context.Context, snapshot Snapshot) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "import_state")
	err := s.store.ImportState(ctx, snapshot)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, "import_state", err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", "import_state", "error", err)
		return err
	}
	s.logger.Info("operation complete", "operation", "import_state", "duration_ms", durationMillis(duration))
	return nil
}

// Validate checks the stored configuration against the field catalog and
// cross-reference rules, returning every finding at once.
func (s *Service) Validate(ctx context.Context) (Result, error) {
	snapshot, err := s.store.ExportState(ctx)
	if err != nil {
		return Result{}, err
	}
	return domain.ValidateSnapshot(snapshot), nil
}

// Derived computes the non-dimensional quantities from the stored fluid
// properties. Stored configuration is never modified.
func (s *Service) Derived(ctx context.Context) (Derived, error) {
	return domain.Nondimensional(s.store.Fluid())
}

// RenderDeck validates the stored configuration and renders the solver input
// deck. Blocking findings abort with RuleViolationError before any text is
// produced; warnings are returned alongside the deck.
func (s *Service) RenderDeck(ctx context.Context) (string, Result, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "render_deck")

	snapshot, err := s.store.ExportState(ctx)
	if err != nil {
		span.End(err)
		s.metrics.Observe(ctx, "render_deck", false, time.Since(started))
		return "", Result{}, err
	}
	text, res, err := deck.Render(snapshot)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, "render_deck", err == nil, duration)
	if err != nil {
		s.logger.Error("deck rendering blocked", "operation", "render_deck", "error", err)
		return "", res, err
	}
	if warnings := res.Warnings(); len(warnings) > 0 {
		s.logger.Warn("deck rendered with warnings", "operation", "render_deck", "warnings", len(warnings))
	}
	s.logger.Info("operation complete", "operation", "render_deck", "duration_ms", durationMillis(duration))
	return text, res, nil
}
