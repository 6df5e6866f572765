package lqr

import (
	"fmt"

	lqg "github.com/milosgajdos/go-lqg"
	"github.com/milosgajdos/go-lqg/matrix"
	"github.com/milosgajdos/go-lqg/model"
	"gonum.org/v1/gonum/mat"
)

const (
	// EffortWeight is the fixed control effort cost weight.
	EffortWeight = 1.0
	// Tolerance is the relative Riccati solution change below which the recursion is solved.
	Tolerance = 1e-9
)

// LQR is a discrete-time linear-quadratic regulator of the rate/torque subsystem.
// Its gain K is used as u = -K*[rate - reference, torque].
type LQR struct {
	// m is the discretized actuator model
	m *model.Discrete
	// q1 is rate cost weight
	q1 float64
	// q2 is torque cost weight
	q2 float64
	// p is the Riccati solution a.k.a. cost-to-go matrix
	p *mat.SymDense
	// k is feedback gain
	k *mat.Dense
	// gain is a fixed size copy of k
	gain [2]float64
	// solved is set once the Riccati recursion converged
	solved bool
}

// New creates new LQR and returns it.
// It accepts the following parameters:
//   - beta:   rotational acceleration per unit of torque
//   - tau:    actuator time constant [s]
//   - ts:     sample period [s]
//   - q1, q2: rate and torque cost weights
//
// The weights are not validated.
// It returns error wrapping lqg.ErrInvalidParameter if either ts or tau is not strictly positive.
func New(beta, tau, ts, q1, q2 float64) (*LQR, error) {
	if ts <= 0 || tau <= 0 {
		return nil, fmt.Errorf("%w: sample period %v, time constant %v", lqg.ErrInvalidParameter, ts, tau)
	}

	c, err := model.NewActuator(beta, tau)
	if err != nil {
		return nil, err
	}

	d, err := c.ToDiscrete(ts)
	if err != nil {
		return nil, err
	}

	nx, nu, _ := d.SystemDims()

	return &LQR{
		m:  d,
		q1: q1,
		q2: q2,
		p:  mat.NewSymDense(nx, []float64{q1, 0, 0, q2}),
		k:  mat.NewDense(nu, nx, nil),
	}, nil
}

// StabilizeCovariance runs n iterations of the discrete algebraic Riccati recursion
//
//	P = Q + A'*P*A - A'*P*B*(R + B'*P*B)^-1*B'*P*A
//
// and derives the feedback gain from each updated solution.
// The recursion is marked solved once the solution stops changing;
// a solved regulator is left untouched.
func (l *LQR) StabilizeCovariance(n int) {
	if l.solved {
		return
	}

	A := l.m.SystemMatrix()
	Q := mat.NewDiagDense(2, []float64{l.q1, l.q2})

	for i := 0; i < n; i++ {
		gain, bpa := l.feedback(l.p)

		// A'*P*A
		next := &mat.Dense{}
		next.Mul(A.T(), l.p)
		next.Mul(next, A)

		// A'*P*B*(R + B'*P*B)^-1*B'*P*A
		corr := &mat.Dense{}
		corr.Mul(bpa.T(), gain)

		next.Sub(next, corr)
		next.Add(next, Q)

		done := matrix.Converged(l.p, next, Tolerance)
		matrix.Symmetrize(l.p, next)

		gain, _ = l.feedback(l.p)
		l.k.Copy(gain)

		if done {
			l.solved = true
			break
		}
	}

	l.gain[0], l.gain[1] = l.k.At(0, 0), l.k.At(0, 1)
}

// feedback returns the gain K = (R + B'*P*B)^-1*B'*P*A for Riccati solution p
// together with B'*P*A.
func (l *LQR) feedback(p mat.Symmetric) (*mat.Dense, *mat.Dense) {
	A := l.m.SystemMatrix()
	B := l.m.ControlMatrix()

	// B'*P
	bp := &mat.Dense{}
	bp.Mul(B.T(), p)

	// R + B'*P*B
	bpb := &mat.Dense{}
	bpb.Mul(bp, B)
	s := bpb.At(0, 0) + EffortWeight

	bpa := &mat.Dense{}
	bpa.Mul(bp, A)

	gain := &mat.Dense{}
	gain.Scale(1/s, bpa)

	return gain, bpa
}

// IsSolved returns true if the Riccati recursion has converged.
func (l *LQR) IsSolved() bool {
	return l.solved
}

// Update overwrites the cost weights and marks the regulator unsolved.
// The current Riccati solution is kept as the starting point of the next
// stabilization. The weights are not validated.
func (l *LQR) Update(q1, q2 float64) {
	l.q1, l.q2 = q1, q2
	l.solved = false
}

// Weights returns the rate and torque cost weights.
func (l *LQR) Weights() (q1, q2 float64) {
	return l.q1, l.q2
}

// Gains returns the current feedback gain, converged or not.
func (l *LQR) Gains() [2]float64 {
	return l.gain
}

// Model returns the discretized model the regulator is built on
func (l *LQR) Model() *model.Discrete {
	return l.m
}

// Cov returns the Riccati solution
func (l *LQR) Cov() mat.Symmetric {
	cov := mat.NewSymDense(l.p.SymmetricDim(), nil)
	cov.CopySym(l.p)

	return cov
}
