package core

import "flowdeck/pkg/domain"

// The service speaks the domain vocabulary directly; these aliases let
// callers stay within this package.
type (
	Base              = domain.Base
	GeometrySettings  = domain.GeometrySettings
	SolverSettings    = domain.SolverSettings
	FluidProperties   = domain.FluidProperties
	InitialConditions = domain.InitialConditions
	BoundaryFile      = domain.BoundaryFile
	BoundaryCondition = domain.BoundaryCondition
	PrescribedMotion  = domain.PrescribedMotion
	Probe             = domain.Probe
	Surface           = domain.Surface
	Snapshot          = domain.Snapshot
	FieldVariable     = domain.FieldVariable
	Derived           = domain.Derived

	EntityType         = domain.EntityType
	Action             = domain.Action
	Change             = domain.Change
	Severity           = domain.Severity
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityGeometry          = domain.EntityGeometry
	EntitySolver            = domain.EntitySolver
	EntityFluid             = domain.EntityFluid
	EntityInitialConditions = domain.EntityInitialConditions
	EntityBoundaryFile      = domain.EntityBoundaryFile
	EntityBoundaryCondition = domain.EntityBoundaryCondition
	EntityPrescribedMotion  = domain.EntityPrescribedMotion
	EntityProbe             = domain.EntityProbe
	EntitySurface           = domain.EntitySurface

	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete

	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)
