package memory

import (
	"strings"
	"testing"

	"flowdeck/testutil"
)

// The canonical store holds domain state and sits below the service layer,
// so its only module-local dependency is the domain package.
func TestStoreDependsOnDomainOnly(t *testing.T) {
	testutil.ForbidImports(t, ".", func(importPath string) bool {
		return strings.HasPrefix(importPath, "flowdeck/") && importPath != "flowdeck/pkg/domain"
	}, "the store backs the service layer and must not import it")

	testutil.ForbidTransitiveDeps(t, ".", func(path string) bool {
		return strings.HasPrefix(path, "flowdeck/internal/core") || strings.HasPrefix(path, "flowdeck/internal/adapters")
	}, "a store reachable from the service layer cannot depend back on it")
}
