package core

import "flowdeck/internal/infra/persistence/memory"

// NewMemoryStore constructs an in-memory store seeded with the authoring
// defaults and backed by the provided rules engine. A nil engine falls back
// to an empty engine with no registered rules; pass NewDefaultRulesEngine()
// for the standard commit gates.
func NewMemoryStore(engine *RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}
