// Package testutil provides test helpers that enforce import boundaries
// between the domain package, the internal service layers and the command
// surfaces.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// ForbidTransitiveDeps fails the test when `go list -deps` over the pattern
// reports a package path matching the banned predicate. The reason is
// included in the failure output.
func ForbidTransitiveDeps(t testing.TB, pattern string, banned func(path string) bool, reason string) {
	t.Helper()
	out, err := listDeps(pattern)
	if err != nil {
		t.Fatalf("list dependencies: %v\n%s", err, out)
	}
	var hits []string
	for line := range strings.Lines(string(out)) {
		if pkg := strings.TrimSpace(line); pkg != "" && banned(pkg) {
			hits = append(hits, pkg)
		}
	}
	report(t, "banned transitive dependency", reason, hits)
}

// ForbidImports parses every non-test .go file directly in dir and fails the
// test when an import path matches the banned predicate. Build tags are not
// evaluated and subdirectories are not followed.
func ForbidImports(t testing.TB, dir string, banned func(importPath string) bool, reason string) {
	t.Helper()
	hits, err := scanImports(dir, banned)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	report(t, "banned import", reason, hits)
}

// IsDomainPath matches import paths resolving to the domain package, module
// version suffixes included.
func IsDomainPath(path string) bool {
	path, _, _ = strings.Cut(path, "@")
	return strings.HasSuffix(path, "/pkg/domain")
}

// IsInternalPath matches import paths crossing an internal boundary.
func IsInternalPath(path string) bool {
	return strings.Contains(path, "/internal/")
}

var listDeps = func(pattern string) ([]byte, error) {
	return exec.Command("go", "list", "-deps", pattern).CombinedOutput()
}

func scanImports(dir string, banned func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var hits []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		src, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range src.Imports {
			if path := strings.Trim(imp.Path.Value, `"`); banned(path) {
				hits = append(hits, name+" imports "+path)
			}
		}
	}
	return hits, nil
}

// failer lets the failure formatter be exercised without aborting the calling
// test.
type failer interface {
	Fatalf(format string, args ...any)
}

func report(t failer, kind, reason string, hits []string) {
	if len(hits) == 0 {
		return
	}
	t.Fatalf("%s (%s):\n%s", kind, reason, strings.Join(hits, "\n"))
}
