package engine

import "fmt"

// InvariantError reports a violated internal consistency check, e.g. a
// negative delivery or an energy balance that does not close. It always
// aborts the run: state after a violated invariant is not trustworthy.
type InvariantError struct {
	Step      int
	Component string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated at step %d (%s): %s", e.Step, e.Component, e.Detail)
}

// ConvergenceError is raised in strict mode when a timestep's supply
// resolution fails to converge. Outside strict mode the same condition is a
// Warning and the run proceeds.
type ConvergenceError struct {
	Step       int
	Residual   float64
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("step %d did not converge after %d iterations (residual %g)",
		e.Step, e.Iterations, e.Residual)
}
