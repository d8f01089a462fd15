// Package deckmodel surfaces the embedded deck-model schema artifacts to the
// runtime: the schema version for artifact stamping, and the DDL bundles
// under sqlbundle for the persistence adapters.
package deckmodel

import "flowdeck/docs/schema"

// Version reports the deck-model schema version from the committed
// fingerprint. It is empty when the fingerprint cannot be decoded, so callers
// stamping metadata must tolerate the blank.
func Version() string {
	version, _ := schema.DeckModelVersion()
	return version
}
