package lqg

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidParameter is returned when a physical model parameter is out of range.
var ErrInvalidParameter = errors.New("invalid parameter")

// Solver converges a steady-state gain by iterating a matrix recursion.
type Solver interface {
	// StabilizeCovariance runs n iterations of the recursion
	StabilizeCovariance(n int)
	// IsSolved reports whether the recursion has converged
	IsSolved() bool
}

// State is a snapshot of the estimated rate, actuator torque and bias.
type State struct {
	Rate   float64
	Torque float64
	Bias   float64
}

// Estimator tracks rate, torque and bias from a scalar measurement stream.
type Estimator interface {
	// Solver computes steady-state estimator gain
	Solver
	// Update advances the estimate given measurement signal and the last issued command u
	Update(signal, u float64)
	// Snapshot returns the current estimate
	Snapshot() State
}

// Regulator computes a steady-state optimal feedback gain for the rate/torque subsystem.
type Regulator interface {
	// Solver computes steady-state regulator gain
	Solver
	// Gains returns the current feedback gain
	Gains() [2]float64
	// Update overwrites the cost weights and invalidates the solution
	Update(q1, q2 float64)
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}
