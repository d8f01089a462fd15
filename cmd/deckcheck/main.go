// Command deckcheck validates a case file against the field catalog and
// cross-reference rules, reports every finding alongside the derived
// non-dimensional quantities, and renders the solver deck when nothing
// blocks.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"flowdeck/internal/config"
	"flowdeck/internal/deck"
	"flowdeck/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute parses the flags, checks the case, and maps the outcome to an exit
// status: 0 when the check passes, 1 when it fails or output cannot be
// written, 2 on a flag error.
func execute(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("deckcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	casePath := fs.String("case", "case.yaml", "path to the case file")
	deckPath := fs.String("deck", "", "write the rendered deck to this path")
	quiet := fs.Bool("quiet", false, "suppress the findings and derived-quantity report")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(*casePath, *deckPath, *quiet, stdout); err != nil {
		fmt.Fprintf(stderr, "deck check: %v\n", err)
		return 1
	}
	if _, err := fmt.Fprintln(stdout, "deck check passed"); err != nil {
		return 1
	}
	return 0
}

// run loads the case, reports findings and derived quantities, and renders
// the deck. Blocking findings fail the run after the report so every problem
// is visible at once.
func run(casePath, deckPath string, quiet bool, stdout io.Writer) error {
	c, err := config.Load(casePath)
	if err != nil {
		return err
	}
	snap := c.Snapshot()

	text, res, renderErr := deck.Render(snap)
	if !quiet {
		if err := report(stdout, snap, res); err != nil {
			return err
		}
	}
	if renderErr != nil {
		return renderErr
	}

	if deckPath != "" {
		if err := os.WriteFile(deckPath, []byte(text), 0o644); err != nil { // #nosec G306: deck files are shared documents
			return fmt.Errorf("write deck: %w", err)
		}
		if !quiet {
			if _, err := fmt.Fprintf(stdout, "deck written to %s\n", deckPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// report lists every finding with its severity and rule, then the derived
// quantities. A divisor of zero in the calculator is shown as a readout, it
// never fails the check.
func report(w io.Writer, snap domain.Snapshot, res domain.Result) error {
	for _, v := range res.Violations {
		target := string(v.Entity)
		if v.EntityID != "" {
			target += " " + v.EntityID
		}
		if _, err := fmt.Fprintf(w, "[%s] %s (%s): %s\n", v.Severity, v.Rule, target, v.Message); err != nil {
			return err
		}
	}
	derived, err := domain.Nondimensional(snap.Fluid)
	if err != nil {
		_, writeErr := fmt.Fprintf(w, "derived: %v\n", err)
		return writeErr
	}
	if _, err := fmt.Fprintf(w, "derived: %s\n", derived); err != nil {
		return err
	}
	return nil
}
