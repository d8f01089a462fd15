package domain

import "fmt"

// Derived holds the non-dimensional numbers computed from fluid properties.
type Derived struct {
	Reynolds float64 `json:"reynolds"`
	Mach     float64 `json:"mach"`
}

// String formats the derived numbers for display.
func (d Derived) String() string {
	return fmt.Sprintf("Re = %.2f, Ma = %.4f", d.Reynolds, d.Mach)
}

// Nondimensional derives the Reynolds and Mach numbers from the dimensional
// reference quantities. It has no side effects and never touches stored
// configuration. A zero viscosity or speed of sound yields a
// DivisionByZeroError with no partial result.
func Nondimensional(p FluidProperties) (Derived, error) {
	if p.Viscosity == 0 {
		return Derived{}, DivisionByZeroError{Quantity: "Reynolds number", Divisor: "viscosity"}
	}
	if p.SpeedOfSound == 0 {
		return Derived{}, DivisionByZeroError{Quantity: "Mach number", Divisor: "speed of sound"}
	}
	return Derived{
		Reynolds: p.Density * p.Velocity * p.Length / p.Viscosity,
		Mach:     p.Velocity / p.SpeedOfSound,
	}, nil
}
