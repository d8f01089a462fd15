package config

import (
	"strings"
	"testing"

	"flowdeck/testutil"
)

// TestCaseCodecBoundaries keeps the case file codec free of service and
// infrastructure dependencies; it reads and writes domain values through the
// YAML parser alone.
func TestCaseCodecBoundaries(t *testing.T) {
	testutil.ForbidImports(t, ".", func(ip string) bool {
		return strings.HasPrefix(ip, "flowdeck/internal/")
	}, "case codec imports the domain and yaml only")
}
