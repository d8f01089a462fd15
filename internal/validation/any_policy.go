// Package validation provides static analysis guards enforced in CI, keeping
// untyped any usage limited to the granted boundary surfaces.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Finding locates one ungranted any usage in the scanned tree.
type Finding struct {
	File    string
	Line    int
	Detail  string
	Snippet string
}

// AnyPolicy is the committed contract for untyped any: globs the scan skips
// entirely plus the grants that approve specific files or declarations.
type AnyPolicy struct {
	Version int        `json:"version"`
	Ignore  []string   `json:"ignore"`
	Grants  []AnyGrant `json:"grants"`
}

// AnyGrant approves any usage in one file. With decls it covers only the
// named top-level declarations, methods counting under their receiver type;
// without decls it covers the whole file.
type AnyGrant struct {
	File     string   `json:"file"`
	Decls    []string `json:"decls,omitempty"`
	Kind     string   `json:"kind"`
	Exported bool     `json:"exported"`
	Reason   string   `json:"reason"`
	Owner    string   `json:"owner"`
	Links    []string `json:"links,omitempty"`
}

var grantKinds = map[string]struct{}{
	"json-codec":    {},
	"api-shim":      {},
	"reflection":    {},
	"test-support":  {},
	"grandfathered": {},
}

// LoadAnyPolicy reads and normalizes the committed any policy.
func LoadAnyPolicy(path string) (AnyPolicy, error) {
	// #nosec G304 -- policy path comes from repo tooling flags
	data, err := os.ReadFile(path)
	if err != nil {
		return AnyPolicy{}, fmt.Errorf("read any policy: %w", err)
	}
	var policy AnyPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return AnyPolicy{}, fmt.Errorf("parse any policy: %w", err)
	}
	if err := policy.normalize(); err != nil {
		return AnyPolicy{}, err
	}
	return policy, nil
}

// CheckAnyUsageFile loads the policy at path and checks the roots against it.
func CheckAnyUsageFile(path, baseDir string, roots []string) ([]Finding, error) {
	policy, err := LoadAnyPolicy(path)
	if err != nil {
		return nil, err
	}
	return CheckAnyUsage(policy, baseDir, roots)
}

// CheckAnyUsage walks the Go files under the roots and reports every use of
// any that no grant covers. Roots resolve against baseDir and findings carry
// paths relative to it.
func CheckAnyUsage(policy AnyPolicy, baseDir string, roots []string) ([]Finding, error) {
	if len(roots) == 0 {
		return nil, errors.New("at least one scan root is required")
	}
	if err := policy.normalize(); err != nil {
		return nil, err
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	ignores, err := compileIgnores(policy.Ignore)
	if err != nil {
		return nil, err
	}
	scan := anyScanner{base: base, ignores: ignores, grants: indexGrants(policy.Grants)}

	var findings []Finding
	for _, root := range roots {
		if root = strings.TrimSpace(root); root == "" {
			continue
		}
		rootFindings, err := scan.root(root)
		if err != nil {
			return nil, err
		}
		findings = append(findings, rootFindings...)
	}
	return findings, nil
}

func (p *AnyPolicy) normalize() error {
	if p.Version < 1 {
		return errors.New("any policy version must be at least 1")
	}
	for i := range p.Grants {
		if err := p.Grants[i].normalize(); err != nil {
			return fmt.Errorf("any policy grant %d: %w", i, err)
		}
	}
	for i, glob := range p.Ignore {
		p.Ignore[i] = strings.TrimSpace(glob)
	}
	return nil
}

func (g *AnyGrant) normalize() error {
	g.File = strings.TrimSpace(g.File)
	if g.File == "" {
		return errors.New("file is required")
	}
	g.File = slashPath(g.File)
	g.Kind = strings.TrimSpace(g.Kind)
	if g.Kind == "" {
		return errors.New("kind is required")
	}
	if _, ok := grantKinds[g.Kind]; !ok {
		return fmt.Errorf("unknown kind %q", g.Kind)
	}
	g.Owner = strings.TrimSpace(g.Owner)
	if g.Owner == "" {
		return errors.New("owner is required")
	}
	g.Reason = strings.TrimSpace(g.Reason)
	if g.Reason == "" {
		return errors.New("reason is required")
	}
	if g.Exported && g.Kind != "json-codec" && g.Kind != "grandfathered" {
		return errors.New("exported grants must be json-codec or grandfathered")
	}
	kept := g.Decls[:0]
	for _, decl := range g.Decls {
		if decl = strings.TrimSpace(decl); decl != "" {
			kept = append(kept, decl)
		}
	}
	if len(kept) == 0 {
		g.Decls = nil
	} else {
		g.Decls = kept
	}
	return nil
}

func slashPath(p string) string {
	cleaned := filepath.ToSlash(filepath.Clean(strings.TrimSpace(p)))
	return strings.TrimPrefix(cleaned, "./")
}

// grantIndex maps file paths to their granted declaration names. A nil name
// set marks a whole-file grant.
type grantIndex map[string]map[string]struct{}

func indexGrants(grants []AnyGrant) grantIndex {
	index := make(grantIndex, len(grants))
	for _, grant := range grants {
		if len(grant.Decls) == 0 {
			index[grant.File] = nil
			continue
		}
		decls, seen := index[grant.File]
		if seen && decls == nil {
			continue
		}
		if decls == nil {
			decls = make(map[string]struct{}, len(grant.Decls))
			index[grant.File] = decls
		}
		for _, decl := range grant.Decls {
			decls[decl] = struct{}{}
		}
	}
	return index
}

func (index grantIndex) covers(file, decl string) bool {
	decls, ok := index[file]
	if !ok {
		return false
	}
	if decls == nil {
		return true
	}
	if decl == "" {
		return false
	}
	_, ok = decls[decl]
	return ok
}

// anyScanner walks one root at a time, skipping ignored and fully granted
// files before parsing anything.
type anyScanner struct {
	base    string
	ignores []*regexp.Regexp
	grants  grantIndex
}

func (s anyScanner) root(root string) ([]Finding, error) {
	rootPath := root
	if !filepath.IsAbs(rootPath) {
		rootPath = filepath.Join(s.base, rootPath)
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s must be a directory", root)
	}
	var findings []Finding
	err = filepath.WalkDir(rootPath, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(s.base, path)
		if err != nil {
			return err
		}
		rel = slashPath(rel)
		if s.ignored(rel) || s.grants.covers(rel, "") {
			return nil
		}
		fileFindings, err := s.file(path, rel)
		if err != nil {
			return err
		}
		findings = append(findings, fileFindings...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

func (s anyScanner) ignored(rel string) bool {
	for _, re := range s.ignores {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}

func (s anyScanner) file(path, rel string) ([]Finding, error) {
	// #nosec G304 -- path comes from walking the validated roots
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(src), "\n")
	var findings []Finding
	for _, hit := range anyHits(parsed) {
		if s.grants.covers(rel, hit.decl) {
			continue
		}
		pos := fset.Position(hit.pos)
		snippet := ""
		if pos.Line >= 1 && pos.Line <= len(lines) {
			snippet = strings.TrimSpace(lines[pos.Line-1])
		}
		findings = append(findings, Finding{
			File:    rel,
			Line:    pos.Line,
			Detail:  "ungranted use of any; use a concrete type or add a policy grant",
			Snippet: snippet,
		})
	}
	return findings, nil
}

// anyHit is one any identifier in a type position, attributed to the
// top-level declaration containing it.
type anyHit struct {
	pos  token.Pos
	decl string
}

func anyHits(file *ast.File) []anyHit {
	var hits []anyHit
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				collectHits(spec, specName(spec), &hits)
			}
		case *ast.FuncDecl:
			collectHits(d, funcSymbol(d), &hits)
		}
	}
	return hits
}

func specName(spec ast.Spec) string {
	switch s := spec.(type) {
	case *ast.TypeSpec:
		return s.Name.Name
	case *ast.ValueSpec:
		if len(s.Names) > 0 {
			return s.Names[0].Name
		}
	}
	return ""
}

// funcSymbol names a function for grant lookups. Methods resolve to their
// receiver type so one grant covers the type together with its methods.
func funcSymbol(fn *ast.FuncDecl) string {
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		if name := baseTypeName(fn.Recv.List[0].Type); name != "" {
			return name
		}
	}
	return fn.Name.Name
}

func baseTypeName(expr ast.Expr) string {
	for {
		switch t := expr.(type) {
		case *ast.Ident:
			return t.Name
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		default:
			return ""
		}
	}
}

// collectHits records every any identifier sitting in a type slot under
// root, pruning type parameter lists where any is an ordinary constraint.
func collectHits(root ast.Node, symbol string, hits *[]anyHit) {
	constraints := map[*ast.Field]bool{}
	ast.Inspect(root, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.FuncType:
			markConstraints(node.TypeParams, constraints)
		case *ast.TypeSpec:
			markConstraints(node.TypeParams, constraints)
		case *ast.Field:
			if constraints[node] {
				return false
			}
		}
		for _, slot := range typeSlots(n) {
			if ident, ok := slot.(*ast.Ident); ok && ident.Name == "any" {
				*hits = append(*hits, anyHit{pos: ident.Pos(), decl: symbol})
			}
		}
		return true
	})
}

func markConstraints(params *ast.FieldList, constraints map[*ast.Field]bool) {
	if params == nil {
		return
	}
	for _, field := range params.List {
		constraints[field] = true
	}
}

// typeSlots lists the children of a node that the grammar forces to be
// types, which is where a bare any identifier counts as an untyped usage.
func typeSlots(n ast.Node) []ast.Expr {
	switch node := n.(type) {
	case *ast.ArrayType:
		return []ast.Expr{node.Elt}
	case *ast.MapType:
		return []ast.Expr{node.Key, node.Value}
	case *ast.ChanType:
		return []ast.Expr{node.Value}
	case *ast.StarExpr:
		return []ast.Expr{node.X}
	case *ast.Ellipsis:
		return []ast.Expr{node.Elt}
	case *ast.Field:
		return []ast.Expr{node.Type}
	case *ast.ValueSpec:
		return []ast.Expr{node.Type}
	case *ast.TypeSpec:
		return []ast.Expr{node.Type}
	case *ast.TypeAssertExpr:
		return []ast.Expr{node.Type}
	case *ast.IndexExpr:
		return []ast.Expr{node.Index}
	case *ast.IndexListExpr:
		return node.Indices
	case *ast.CallExpr:
		return []ast.Expr{node.Fun}
	}
	return nil
}

// compileIgnores turns the policy ignore globs into anchored regexps. Globs
// support ** across path segments, * within one segment and ? for a single
// character.
func compileIgnores(globs []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, glob := range globs {
		if glob == "" {
			continue
		}
		re, err := compileGlob(glob)
		if err != nil {
			return nil, fmt.Errorf("ignore glob %q: %w", glob, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func compileGlob(glob string) (*regexp.Regexp, error) {
	runes := []rune(slashPath(glob))
	var sb strings.Builder
	sb.WriteByte('^')
	for i := 0; i < len(runes); {
		switch {
		case runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '*':
			sb.WriteString(".*")
			i += 2
		case runes[i] == '*':
			sb.WriteString(`[^/]*`)
			i++
		case runes[i] == '?':
			sb.WriteString(`[^/]`)
			i++
		default:
			sb.WriteString(regexp.QuoteMeta(string(runes[i])))
			i++
		}
	}
	sb.WriteByte('$')
	return regexp.Compile(sb.String())
}
