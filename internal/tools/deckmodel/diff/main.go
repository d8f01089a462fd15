// Program deckmodeldiff guards the committed deck model against breaking
// edits. It reduces docs/schema/deck-model.json to a sorted fingerprint,
// compares it with the committed baseline and reports every removal or
// reshape; purely additive changes pass.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
)

// deckModel mirrors the slices of the canonical schema document that the
// fingerprint tracks. Descriptions and id_semantics are prose and stay out.
type deckModel struct {
	Version     string                 `json:"version"`
	Enums       map[string]enumBlock   `json:"enums"`
	Definitions map[string]defBlock    `json:"definitions"`
	Entities    map[string]entityBlock `json:"entities"`
}

type enumBlock struct {
	Values []string `json:"values"`
}

type defBlock struct {
	Type       string                     `json:"type"`
	Properties map[string]json.RawMessage `json:"properties"`
	Required   []string                   `json:"required"`
}

type entityBlock struct {
	Properties    map[string]json.RawMessage `json:"properties"`
	Required      []string                   `json:"required"`
	Invariants    []string                   `json:"invariants"`
	Relationships map[string]linkSpec        `json:"relationships"`
}

type linkSpec struct {
	Target      string `json:"target"`
	Cardinality string `json:"cardinality"`
	Storage     string `json:"storage"`
}

// baseline is the committed fingerprint shape. Every list is sorted so the
// file diffs cleanly under version control.
type baseline struct {
	Version     string                 `json:"version"`
	Enums       map[string][]string    `json:"enums"`
	Definitions map[string]defPrint    `json:"definitions"`
	Entities    map[string]entityPrint `json:"entities"`
}

type defPrint struct {
	Type       string   `json:"type"`
	Properties []string `json:"properties,omitempty"`
	Required   []string `json:"required,omitempty"`
}

type entityPrint struct {
	Properties    []string            `json:"properties"`
	Required      []string            `json:"required"`
	Invariants    []string            `json:"invariants"`
	Relationships map[string]linkSpec `json:"relationships"`
}

var exitFunc = os.Exit

func main() {
	schemaPath := flag.String("schema", "docs/schema/deck-model.json", "canonical deck model document")
	baselinePath := flag.String("fingerprint", "docs/schema/deck-model.fingerprint.json", "committed fingerprint to compare against")
	write := flag.Bool("write", false, "regenerate the fingerprint instead of comparing")
	flag.Parse()

	model, err := readModel(*schemaPath)
	if err != nil {
		fail(err)
	}
	current := model.fingerprint()

	if *write {
		if err := current.writeTo(*baselinePath); err != nil {
			fail(err)
		}
		fmt.Printf("fingerprint written to %s\n", *baselinePath)
		return
	}

	committed, err := readBaseline(*baselinePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fail(fmt.Errorf("no fingerprint at %s; run with -write to create it", *baselinePath))
		}
		fail(err)
	}

	breaks := committed.breakingChanges(current)
	if len(breaks) > 0 {
		for _, b := range breaks {
			fmt.Println(b)
		}
		exitFunc(1)
	}

	fmt.Println("deck model matches the committed fingerprint")
}

func readModel(path string) (deckModel, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // resolved inside the repo checkout
	if err != nil {
		return deckModel{}, fmt.Errorf("read deck model: %w", err)
	}
	var m deckModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return deckModel{}, fmt.Errorf("parse deck model: %w", err)
	}
	return m, nil
}

func readBaseline(path string) (baseline, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // resolved inside the repo checkout
	if err != nil {
		return baseline{}, err
	}
	var b baseline
	if err := json.Unmarshal(raw, &b); err != nil {
		return baseline{}, fmt.Errorf("parse fingerprint: %w", err)
	}
	return b, nil
}

func (m deckModel) fingerprint() baseline {
	b := baseline{
		Version:     m.Version,
		Enums:       make(map[string][]string, len(m.Enums)),
		Definitions: make(map[string]defPrint, len(m.Definitions)),
		Entities:    make(map[string]entityPrint, len(m.Entities)),
	}

	for name, enum := range m.Enums {
		b.Enums[name] = sorted(enum.Values)
	}

	for name, def := range m.Definitions {
		b.Definitions[name] = defPrint{
			Type:       def.Type,
			Properties: names(def.Properties),
			Required:   sorted(def.Required),
		}
	}

	for name, ent := range m.Entities {
		links := make(map[string]linkSpec, len(ent.Relationships))
		for linkName, link := range ent.Relationships {
			links[linkName] = link
		}
		b.Entities[name] = entityPrint{
			Properties:    names(ent.Properties),
			Required:      sorted(ent.Required),
			Invariants:    sorted(ent.Invariants),
			Relationships: links,
		}
	}

	return b
}

func (b baseline) writeTo(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fingerprint: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write fingerprint: %w", err)
	}
	return nil
}

// breakingChanges reports everything the committed baseline promises that the
// next fingerprint no longer delivers. Additions never count.
func (b baseline) breakingChanges(next baseline) []string {
	var breaks []string

	for name, was := range b.Enums {
		now, ok := next.Enums[name]
		if !ok {
			breaks = append(breaks, fmt.Sprintf("enum %s removed", name))
			continue
		}
		breaks = append(breaks, lost("enum "+name, "value", was, now)...)
	}

	for name, was := range b.Definitions {
		now, ok := next.Definitions[name]
		if !ok {
			breaks = append(breaks, fmt.Sprintf("definition %s removed", name))
			continue
		}
		if was.Type != now.Type {
			breaks = append(breaks, fmt.Sprintf("definition %s changed type from %s to %s", name, was.Type, now.Type))
		}
		breaks = append(breaks, lost("definition "+name, "property", was.Properties, now.Properties)...)
		breaks = append(breaks, lost("definition "+name, "required field", was.Required, now.Required)...)
	}

	for name, was := range b.Entities {
		now, ok := next.Entities[name]
		if !ok {
			breaks = append(breaks, fmt.Sprintf("entity %s removed", name))
			continue
		}
		breaks = append(breaks, lost("entity "+name, "property", was.Properties, now.Properties)...)
		breaks = append(breaks, lost("entity "+name, "required field", was.Required, now.Required)...)
		breaks = append(breaks, lost("entity "+name, "invariant", was.Invariants, now.Invariants)...)
		for linkName, wasLink := range was.Relationships {
			nowLink, ok := now.Relationships[linkName]
			if !ok {
				breaks = append(breaks, fmt.Sprintf("entity %s lost relationship %q", name, linkName))
				continue
			}
			if wasLink != nowLink {
				breaks = append(breaks, fmt.Sprintf("entity %s relationship %q changed shape", name, linkName))
			}
		}
	}

	if b.Version != "" && next.Version != b.Version {
		breaks = append(breaks, fmt.Sprintf("model version changed: %s -> %s", b.Version, next.Version))
	}

	sort.Strings(breaks)
	return breaks
}

func lost(scope, kind string, was, now []string) []string {
	keep := make(map[string]struct{}, len(now))
	for _, v := range now {
		keep[v] = struct{}{}
	}
	var breaks []string
	for _, v := range was {
		if _, ok := keep[v]; !ok {
			breaks = append(breaks, fmt.Sprintf("%s lost %s %q", scope, kind, v))
		}
	}
	return breaks
}

func sorted(vals []string) []string {
	out := append([]string(nil), vals...)
	sort.Strings(out)
	return out
}

func names[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	exitFunc(1)
}
