// Package schema embeds the canonical deck-model JSON and its fingerprint so
// the running binary can report which schema revision it was built from.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed deck-model.json
var deckModelSchema []byte

//go:embed deck-model.fingerprint.json
var deckModelFingerprint []byte

// Metadata is the metadata block of the canonical deck-model JSON.
type Metadata struct {
	Source string `json:"source"`
	Status string `json:"status"`
}

var deckModelVersion = sync.OnceValues(func() (string, error) {
	var fp struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(deckModelFingerprint, &fp); err != nil {
		return "", fmt.Errorf("decode deck-model fingerprint: %w", err)
	}
	return fp.Version, nil
})

var deckModelMetadata = sync.OnceValues(func() (Metadata, error) {
	var doc struct {
		Metadata Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(deckModelSchema, &doc); err != nil {
		return Metadata{}, fmt.Errorf("decode deck-model schema: %w", err)
	}
	return doc.Metadata, nil
})

// DeckModelVersion returns the schema version recorded in the committed
// fingerprint.
func DeckModelVersion() (string, error) {
	return deckModelVersion()
}

// DeckModelMetadata returns the status and source block of the canonical
// deck-model JSON.
func DeckModelMetadata() (Metadata, error) {
	return deckModelMetadata()
}
