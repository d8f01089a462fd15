package core

import "flowdeck/pkg/domain"

// Rule evaluates pending changes inside a transaction boundary.
type Rule = domain.Rule

// RulesEngine runs every registered rule against a pending transaction.
type RulesEngine = domain.RulesEngine

// NewRulesEngine returns an engine with no rules registered.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds the engine with the stock policy set. Motion
// tag integrity blocks commits; reference checks surface warnings.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewMotionTagPositiveRule())
	engine.Register(NewMotionTagUniqueRule())
	engine.Register(NewTagReferenceRule())
	return engine
}
