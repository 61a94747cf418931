// Package solver implements the fixed-point convergence engine used to
// resolve mutually dependent quantities within one timestep, e.g. delivered
// heat and the zone temperature it produces.
//
// The algorithm is successive substitution with optional damping. It is
// fully deterministic: identical inputs yield identical iteration
// trajectories, which run reproducibility depends on.
package solver

import "math"

// Config parameterizes one solve.
type Config struct {
	// Tolerance is the convergence threshold in the tracked quantity's
	// natural unit. Defaults to 1e-2.
	Tolerance float64
	// MaxIterations bounds the iteration count. Defaults to 30.
	MaxIterations int
	// Damping in (0, 1] scales each update step; 1 is plain substitution,
	// smaller values damp oscillation. Defaults to 1.
	Damping float64
}

// WithDefaults fills unset fields with the package defaults.
func (c Config) WithDefaults() Config {
	if c.Tolerance <= 0 {
		c.Tolerance = 1e-2
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 30
	}
	if c.Damping <= 0 || c.Damping > 1 {
		c.Damping = 1
	}
	return c
}

// Update maps a candidate state vector to the next iterate. It must not
// mutate its argument.
type Update func(x []float64) []float64

// Metric measures the distance between successive iterates.
type Metric func(a, b []float64) float64

// MaxAbsDiff is the default metric: the largest absolute per-component
// difference.
func MaxAbsDiff(a, b []float64) float64 {
	var max float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > max {
			max = d
		}
	}
	return max
}

// Result reports one solve.
type Result struct {
	X          []float64
	Iterations int
	Residual   float64
	Converged  bool
}

// Solve iterates x' = f(x) from x0 until the metric drops below the
// tolerance or the iteration cap is reached. The final iterate is returned
// either way; Converged reports which case occurred.
func Solve(x0 []float64, f Update, dist Metric, cfg Config) Result {
	cfg = cfg.WithDefaults()
	if dist == nil {
		dist = MaxAbsDiff
	}

	x := make([]float64, len(x0))
	copy(x, x0)

	var residual float64
	for i := 1; i <= cfg.MaxIterations; i++ {
		next := f(x)
		if cfg.Damping != 1 {
			damped := make([]float64, len(next))
			for j := range next {
				damped[j] = x[j] + cfg.Damping*(next[j]-x[j])
			}
			next = damped
		}

		residual = dist(next, x)
		x = next

		if residual < cfg.Tolerance {
			return Result{X: x, Iterations: i, Residual: residual, Converged: true}
		}
	}

	return Result{X: x, Iterations: cfg.MaxIterations, Residual: residual, Converged: false}
}

// Warning records a timestep whose supply resolution hit the iteration cap.
// Non-fatal by default: the run proceeds with the last iterate.
type Warning struct {
	Step       int
	Residual   float64
	Iterations int
}
