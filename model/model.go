package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// System defines a linear model of a plant using
// traditional matrices of modern control theory.
//
// It contains the System (A), input (B) and Observation/Output (C) matrices.
type System struct {
	// System/State matrix A
	A *mat.Dense
	// Control/Input Matrix B
	B *mat.Dense
	// Observation/Output Matrix C
	C *mat.Dense
}

func newSystem(A, B, C *mat.Dense) System {
	sys := System{A: mat.DenseCopyOf(A)}
	if B != nil {
		sys.B = mat.DenseCopyOf(B)
	}
	if C != nil {
		sys.C = mat.DenseCopyOf(C)
	}
	return sys
}

// SystemDims returns internal state length (nx), input vector length (nu)
// and external/observable/output state length (ny).
func (s System) SystemDims() (nx, nu, ny int) {
	nx, _ = s.A.Dims()
	if s.B != nil {
		_, nu = s.B.Dims()
	}
	if s.C != nil {
		ny, _ = s.C.Dims()
	}
	return nx, nu, ny
}

// SystemMatrix returns state propagation matrix `A`.
func (s System) SystemMatrix() (A mat.Matrix) { return s.A }

// ControlMatrix returns state propagation control matrix `B`
func (s System) ControlMatrix() (B mat.Matrix) {
	if s.B == nil {
		return nil
	}
	return s.B
}

// OutputMatrix returns observation matrix `C`
func (s System) OutputMatrix() (C mat.Matrix) {
	if s.C == nil {
		return nil
	}
	return s.C
}

// Observe returns external/observable state given internal state x.
// wn is added to the output as a noise vector.
func (s System) Observe(x, wn mat.Vector) (y mat.Vector, err error) {
	nx, _, ny := s.SystemDims()
	if s.C == nil {
		return nil, fmt.Errorf("output matrix not defined")
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	out := new(mat.Dense)
	out.Mul(s.C, x)

	if wn != nil && wn.Len() == ny {
		out.Add(out, wn)
	}

	return out.ColView(0), nil
}

// Continuous is a linear, continuous-time, dynamical system
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model based on the control theory equations.
//
//	dx/dt = A*x + B*u
//	y = C*x
func NewContinuous(A, B, C *mat.Dense) (*Continuous, error) {
	if A == nil {
		return nil, fmt.Errorf("system matrix must be defined for a model")
	}
	if r, c := A.Dims(); r != c {
		return nil, fmt.Errorf("invalid system matrix dimensions: [%d x %d]", r, c)
	}
	return &Continuous{System: newSystem(A, B, C)}, nil
}

// ToDiscrete creates a discrete-time model from a continuous time model
// using ts as the sampling time and a zero-order hold on the input.
//
// Both matrices come out of a single exponential of the augmented matrix
//
//	exp([A B; 0 0]*ts) = [Ad Bd; 0 I]
//
// which does not require A to be invertible.
func (ct *Continuous) ToDiscrete(ts float64) (*Discrete, error) {
	if ts <= 0 {
		return nil, fmt.Errorf("invalid sample period: %v", ts)
	}

	nx, nu, _ := ct.SystemDims()
	n := nx + nu

	aug := mat.NewDense(n, n, nil)
	aug.Slice(0, nx, 0, nx).(*mat.Dense).Copy(ct.A)
	if nu > 0 {
		aug.Slice(0, nx, nx, n).(*mat.Dense).Copy(ct.B)
	}
	aug.Scale(ts, aug)

	exp := &mat.Dense{}
	exp.Exp(aug)

	dsys := System{A: mat.DenseCopyOf(exp.Slice(0, nx, 0, nx))}
	if nu > 0 {
		dsys.B = mat.DenseCopyOf(exp.Slice(0, nx, nx, n))
	}
	if ct.C != nil {
		dsys.C = mat.DenseCopyOf(ct.C)
	}

	return &Discrete{System: dsys, ts: ts}, nil
}

// Discrete is a linear, discrete-time, dynamical system
type Discrete struct {
	System
	// ts is sample period
	ts float64
}

// NewDiscrete creates a linear discrete-time model sampled with period ts.
//
//	x[n+1] = A*x[n] + B*u[n]
//	y[n] = C*x[n]
func NewDiscrete(A, B, C *mat.Dense, ts float64) (*Discrete, error) {
	if A == nil {
		return nil, fmt.Errorf("system matrix must be defined for a model")
	}
	if ts <= 0 {
		return nil, fmt.Errorf("invalid sample period: %v", ts)
	}
	return &Discrete{System: newSystem(A, B, C), ts: ts}, nil
}

// SamplePeriod returns the model sample period.
func (d *Discrete) SamplePeriod() float64 { return d.ts }

// Propagate returns the next internal state x of a linear, discrete-time
// system given an input vector u and a process noise vector wd.
func (d *Discrete) Propagate(x, u, wd mat.Vector) (mat.Vector, error) {
	nx, nu, _ := d.SystemDims()
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("invalid input vector")
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	out := new(mat.Dense)
	out.Mul(d.A, x)
	if u != nil && d.B != nil {
		outU := new(mat.Dense)
		outU.Mul(d.B, u)

		out.Add(out, outU)
	}

	if wd != nil && wd.Len() == nx {
		out.Add(out, wd)
	}
	return out.ColView(0), nil
}
