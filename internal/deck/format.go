package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// expNotation formats tolerances and reference quantities with six fractional
// digits and a signed exponent, the precision the solver parses.
func expNotation(v float64) string {
	return fmt.Sprintf("%.6e", v)
}

// plainFloat formats a value in positional notation with the shortest digit
// run that round-trips, always keeping a fractional part.
func plainFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// truncInt drops the fractional part toward zero.
func truncInt(v float64) int {
	return int(v)
}

// boolFlag renders a toggle as the deck's 0/1 convention.
func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
