// Program deckmodelvalidate checks the deck model schema for structural
// defects before it ships: missing base fields, dangling $refs, orphaned
// enums, malformed relationships.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const defaultSchemaPath = "docs/schema/deck-model.json"

type enumSpec struct {
	Values []string `json:"values"`
}

type relationshipSpec struct {
	Target      string `json:"target"`
	Cardinality string `json:"cardinality"`
}

type naturalKeySpec struct {
	Fields      []string `json:"fields"`
	Scope       string   `json:"scope"`
	Description string   `json:"description"`
}

type propertySpec struct {
	Type string `json:"type"`
	Ref  string `json:"$ref"`
}

type entitySpec struct {
	Description   string                      `json:"description"`
	NaturalKeys   []naturalKeySpec            `json:"natural_keys"`
	Required      []string                    `json:"required"`
	Properties    map[string]json.RawMessage  `json:"properties"`
	Relationships map[string]relationshipSpec `json:"relationships"`
	Invariants    []string                    `json:"invariants"`
}

type metadataSpec struct {
	Status string `json:"status"`
}

type idSemanticsSpec struct {
	Type        string `json:"type"`
	Scope       string `json:"scope"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

type schemaDoc struct {
	Version     string                     `json:"version"`
	Metadata    metadataSpec               `json:"metadata"`
	Enums       map[string]enumSpec        `json:"enums"`
	Definitions map[string]json.RawMessage `json:"definitions"`
	Entities    map[string]entitySpec      `json:"entities"`
	IDSemantics *idSemanticsSpec           `json:"id_semantics"`
}

var (
	exitFn              = os.Exit
	errWriter io.Writer = os.Stderr
)

func main() {
	path := defaultSchemaPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if err := validate(path); err != nil {
		fail(err)
	}
	fmt.Println("deck-model validation: OK")
}

func fail(err error) {
	if _, werr := fmt.Fprintf(errWriter, "deck-model validation failed: %v\n", err); werr != nil {
		//nolint:errcheck // already failing; stderr is the last resort
		fmt.Fprintf(os.Stderr, "deck-model validation failed (write error: %v)\n", werr)
	}
	exitFn(1)
}

func validate(path string) error {
	//nolint:gosec // the schema path is chosen by the operator running the tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	var doc schemaDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse schema JSON: %w", err)
	}
	c := checker{doc: doc}
	return c.run()
}

// checker walks one schema document and accumulates every finding, so a
// single run reports all problems at once.
type checker struct {
	doc      schemaDoc
	problems []string
}

func (c *checker) reportf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *checker) run() error {
	c.header()
	c.enums()
	c.entities()
	if len(c.problems) == 0 {
		return nil
	}
	sort.Strings(c.problems)
	return errors.New(strings.Join(c.problems, "; "))
}

func (c *checker) header() {
	if c.doc.Version == "" {
		c.reportf("version must be set")
	}
	if c.doc.Metadata.Status == "" {
		c.reportf("metadata.status must be set")
	}
	ids := c.doc.IDSemantics
	if ids == nil {
		c.reportf("id_semantics must be declared")
		return
	}
	if strings.TrimSpace(ids.Type) == "" {
		c.reportf("id_semantics.type must be set")
	}
	if strings.TrimSpace(ids.Scope) == "" {
		c.reportf("id_semantics.scope must be set")
	}
	if !ids.Required {
		c.reportf("id_semantics.required must be true")
	}
	if strings.TrimSpace(ids.Description) == "" {
		c.reportf("id_semantics.description must be set")
	}
}

func (c *checker) enums() {
	if len(c.doc.Enums) == 0 {
		c.reportf("enums must not be empty")
	}
	for name, spec := range c.doc.Enums {
		if len(spec.Values) == 0 {
			c.reportf("enum %q must carry at least one value", name)
		}
		seen := make(map[string]bool, len(spec.Values))
		for i, value := range spec.Values {
			if strings.TrimSpace(value) == "" {
				c.reportf("enum %q value #%d is empty", name, i)
			}
			if seen[value] {
				c.reportf("enum %q repeats value %q", name, value)
			}
			seen[value] = true
		}
		if !c.enumReferenced(name) {
			c.reportf("enum %q is never referenced by an entity or definition", name)
		}
	}
}

// enumReferenced reports whether any entity property or definition carries a
// $ref to the named enum.
func (c *checker) enumReferenced(enum string) bool {
	needle := fmt.Sprintf("%q", "#/enums/"+enum)
	for _, ent := range c.doc.Entities {
		for _, rawProp := range ent.Properties {
			if strings.Contains(string(rawProp), needle) {
				return true
			}
		}
	}
	for _, rawDef := range c.doc.Definitions {
		if strings.Contains(string(rawDef), needle) {
			return true
		}
	}
	return false
}

func (c *checker) entities() {
	if len(c.doc.Entities) == 0 {
		c.reportf("entities section must not be empty")
	}
	for name, ent := range c.doc.Entities {
		c.entity(name, ent)
	}
}

func (c *checker) entity(name string, ent entitySpec) {
	if len(ent.Required) == 0 {
		c.reportf("entity %q must declare required fields", name)
	}
	if len(ent.Properties) == 0 {
		c.reportf("entity %q must declare properties", name)
	}
	if ent.NaturalKeys == nil {
		c.reportf("entity %q must declare natural_keys (an empty array is fine)", name)
	}
	for _, base := range []string{"id", "created_at", "updated_at"} {
		if !hasField(ent.Required, base) {
			c.reportf("entity %q must list base field %q as required", name, base)
		}
	}
	for _, field := range ent.Required {
		if _, ok := ent.Properties[field]; !ok {
			c.reportf("entity %q requires field %q that is not among its properties", name, field)
		}
	}
	for propName, rawProp := range ent.Properties {
		if issue := c.propertyIssue(rawProp); issue != "" {
			c.reportf("entity %q property %q %s", name, propName, issue)
		}
	}
	c.naturalKeys(name, ent)
	c.relationships(name, ent)
	c.invariants(name, ent.Invariants)
}

func (c *checker) naturalKeys(name string, ent entitySpec) {
	for i, nk := range ent.NaturalKeys {
		if len(nk.Fields) == 0 {
			c.reportf("entity %q natural key #%d has no fields", name, i)
		}
		for _, field := range nk.Fields {
			if _, ok := ent.Properties[field]; !ok {
				c.reportf("entity %q natural key field %q is not among its properties", name, field)
			}
		}
		if nk.Scope == "" {
			label := strings.Join(nk.Fields, ",")
			if label == "" {
				label = "<unset>"
			}
			c.reportf("entity %q natural key [%s] must declare scope", name, label)
		}
	}
}

func (c *checker) relationships(name string, ent entitySpec) {
	for relName, rel := range ent.Relationships {
		if rel.Target == "" {
			c.reportf("entity %q relationship %q has no target", name, relName)
			continue
		}
		if _, ok := c.doc.Entities[rel.Target]; !ok {
			c.reportf("entity %q relationship %q targets unknown entity %q", name, relName, rel.Target)
		}
		if _, ok := ent.Properties[relName]; !ok {
			c.reportf("entity %q relationship %q has no matching property", name, relName)
		}
		switch rel.Cardinality {
		case "0..1", "1..1", "0..n", "1..n":
		case "":
			c.reportf("entity %q relationship %q has no cardinality", name, relName)
		default:
			c.reportf("entity %q relationship %q has invalid cardinality %q", name, relName, rel.Cardinality)
		}
	}
}

func (c *checker) invariants(name string, invariants []string) {
	seen := make(map[string]bool, len(invariants))
	for i, invariant := range invariants {
		trimmed := strings.TrimSpace(invariant)
		if trimmed == "" {
			c.reportf("entity %q invariants[%d] is empty", name, i)
			continue
		}
		if seen[trimmed] {
			c.reportf("entity %q repeats invariant %q", name, trimmed)
		}
		seen[trimmed] = true
	}
}

// propertyIssue resolves a property's $ref against the enums and definitions
// sections. Inline-typed properties need no resolution.
func (c *checker) propertyIssue(rawProp json.RawMessage) string {
	var prop propertySpec
	if err := json.Unmarshal(rawProp, &prop); err != nil {
		return fmt.Sprintf("is invalid JSON: %v", err)
	}
	switch {
	case prop.Ref == "" && prop.Type == "":
		return "must declare a type or $ref"
	case prop.Ref == "":
		return ""
	case strings.HasPrefix(prop.Ref, "#/enums/"):
		name := strings.TrimPrefix(prop.Ref, "#/enums/")
		if _, ok := c.doc.Enums[name]; !ok {
			return fmt.Sprintf("references unknown enum %q", name)
		}
	case strings.HasPrefix(prop.Ref, "#/definitions/"):
		name := strings.TrimPrefix(prop.Ref, "#/definitions/")
		if _, ok := c.doc.Definitions[name]; !ok {
			return fmt.Sprintf("references unknown definition %q", name)
		}
	default:
		return fmt.Sprintf("uses unsupported $ref form %q", prop.Ref)
	}
	return ""
}

func hasField(fields []string, name string) bool {
	for _, f := range fields {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}
