// Command check_any_policy keeps untyped any off the exported API surfaces.
// It scans the configured package roots and fails when a usage is not covered
// by the committed policy.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"flowdeck/internal/validation"
)

const (
	defaultPolicy = "internal/ci/any_policy.json"
	defaultRoots  = "pkg/domain,internal/core,internal/adapters/decks,internal/config"
)

type checker func(policyPath, baseDir string, roots []string) ([]validation.Finding, error)

var (
	exitFunc           = os.Exit
	workingDir         = os.Getwd
	checkFunc  checker = validation.CheckAnyUsageFile
)

func main() {
	exitFunc(run(os.Args, os.Stderr, checkFunc))
}

func run(args []string, stderr io.Writer, check checker) int {
	if len(args) == 0 {
		return 1
	}
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(stderr)
	policy := flags.String("policy", defaultPolicy, "path to the any usage policy")
	rootsFlag := flags.String("roots", defaultRoots, "comma-separated package roots to scan")
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}

	roots := parseRoots(*rootsFlag)
	if len(roots) == 0 {
		_, _ = fmt.Fprintln(stderr, "nothing to scan: provide at least one root")
		return 1
	}
	baseDir, err := workingDir()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "determine working directory: %v\n", err)
		return 1
	}

	findings, err := check(*policy, baseDir, roots)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "any policy check failed: %v\n", err)
		return 1
	}
	if len(findings) == 0 {
		return 0
	}
	report(stderr, findings)
	return 1
}

func report(w io.Writer, findings []validation.Finding) {
	_, _ = fmt.Fprintf(w, "%d any usages outside the policy:\n\n", len(findings))
	for _, f := range findings {
		_, _ = fmt.Fprintf(w, "%s:%d\n", f.File, f.Line)
		if f.Detail != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", f.Detail)
		}
		if f.Snippet != "" {
			_, _ = fmt.Fprintf(w, "  at %s\n", f.Snippet)
		}
		_, _ = fmt.Fprintln(w)
	}
}

func parseRoots(raw string) []string {
	var roots []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			roots = append(roots, part)
		}
	}
	return roots
}
