package rtkf

import (
	"fmt"
	"math"

	lqg "github.com/milosgajdos/go-lqg"
	"github.com/milosgajdos/go-lqg/matrix"
	"github.com/milosgajdos/go-lqg/model"
	mx "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

const (
	// InitCov is the initial variance of every state: high prior uncertainty.
	InitCov = 1e5
	// Tolerance is the relative covariance change below which the recursion is solved.
	Tolerance = 1e-9
)

// RTKF is a steady-state Kalman filter tracking rate, actuator torque and
// actuator bias from a scalar rate measurement.
type RTKF struct {
	// m is the discretized biased actuator model
	m *model.Discrete
	// q is state noise a.k.a. process noise covariance
	q *mat.SymDense
	// r is output noise a.k.a. measurement noise variance
	r float64
	// biasLim bounds the magnitude of the bias estimate
	biasLim float64
	// p is the RTKF covariance matrix
	p *mat.SymDense
	// pNext is the RTKF predicted covariance matrix
	pNext *mat.SymDense
	// k is Kalman gain
	k *mat.Dense
	// eye is identity matrix used in Joseph form update
	eye *mat.Dense
	// solved is set once the covariance recursion converged
	solved bool

	// fixed size copies of the model and gain used by Update
	a    [3][3]float64
	b    [3]float64
	c    [3]float64
	gain [3]float64
	// x is the state estimate: rate, torque, bias
	x [3]float64
}

// New creates new RTKF and returns it.
// It accepts the following parameters:
//   - beta:    rotational acceleration per unit of torque
//   - tau:     actuator time constant [s]
//   - ts:      sample period [s]
//   - r:       measurement noise variance
//   - q1..q3:  rate, torque and bias process noise variances
//   - biasLim: bias estimate magnitude limit
//
// It returns error wrapping lqg.ErrInvalidParameter if either ts or tau is not strictly positive.
func New(beta, tau, ts, r, q1, q2, q3, biasLim float64) (*RTKF, error) {
	if ts <= 0 || tau <= 0 {
		return nil, fmt.Errorf("%w: sample period %v, time constant %v", lqg.ErrInvalidParameter, ts, tau)
	}

	c, err := model.NewBiasedActuator(beta, tau)
	if err != nil {
		return nil, err
	}

	d, err := c.ToDiscrete(ts)
	if err != nil {
		return nil, err
	}

	nx, _, _ := d.SystemDims()

	eye, err := mx.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity matrix: %v", err)
	}

	p := mat.NewSymDense(nx, nil)
	for i := 0; i < nx; i++ {
		p.SetSym(i, i, InitCov)
	}

	k := &RTKF{
		m:       d,
		q:       mat.NewSymDense(nx, []float64{q1, 0, 0, 0, q2, 0, 0, 0, q3}),
		r:       r,
		biasLim: math.Abs(biasLim),
		p:       p,
		pNext:   mat.NewSymDense(nx, nil),
		k:       mat.NewDense(nx, 1, nil),
		eye:     eye,
	}

	for i := 0; i < nx; i++ {
		for j := 0; j < nx; j++ {
			k.a[i][j] = d.A.At(i, j)
		}
		k.b[i] = d.B.At(i, 0)
		k.c[i] = d.C.At(0, i)
	}

	return k, nil
}

// StabilizeCovariance runs n iterations of the covariance recursion.
// Each iteration propagates the covariance through the system matrix, adds
// the process noise and then shrinks it by the information gained from a
// measurement. The recursion is marked solved once the covariance stops
// changing; a solved filter is left untouched.
func (k *RTKF) StabilizeCovariance(n int) {
	if k.solved {
		return
	}

	A := k.m.SystemMatrix()
	C := k.m.OutputMatrix()

	for i := 0; i < n; i++ {
		// A*P*A' + Q
		cov := &mat.Dense{}
		cov.Mul(A, k.p)
		cov.Mul(cov, A.T())
		cov.Add(cov, k.q)
		matrix.Symmetrize(k.pNext, cov)

		// P*C'
		pxy := &mat.Dense{}
		pxy.Mul(k.pNext, C.T())

		// C*P*C' + R
		pyy := &mat.Dense{}
		pyy.Mul(C, pxy)
		s := pyy.At(0, 0) + k.r
		if s <= 0 {
			break
		}

		// calculate Kalman gain
		gain := &mat.Dense{}
		gain.Scale(1/s, pxy)

		// Joseph form update
		a := &mat.Dense{}
		// K*C
		a.Mul(gain, C)
		// eye - K*C
		a.Sub(k.eye, a)

		ap := &mat.Dense{}
		ap.Mul(a, k.pNext)
		pCorr := &mat.Dense{}
		pCorr.Mul(ap, a.T())

		// K*R*K'
		krk := &mat.Dense{}
		krk.Mul(gain, gain.T())
		krk.Scale(k.r, krk)
		pCorr.Add(pCorr, krk)

		done := matrix.Converged(k.p, pCorr, Tolerance)

		matrix.Symmetrize(k.p, pCorr)
		k.k.Copy(gain)

		if done {
			k.solved = true
			break
		}
	}

	for i := range k.gain {
		k.gain[i] = k.k.At(i, 0)
	}
}

// IsSolved returns true if the covariance recursion has converged.
func (k *RTKF) IsSolved() bool {
	return k.solved
}

// Update predicts the next state from the current estimate and the last
// issued command u and corrects it with measurement signal using the
// steady-state gain. The bias estimate is clamped to the configured limit.
func (k *RTKF) Update(signal, u float64) {
	x := k.x

	var xp [3]float64
	for i := 0; i < 3; i++ {
		xp[i] = k.a[i][0]*x[0] + k.a[i][1]*x[1] + k.a[i][2]*x[2] + k.b[i]*u
	}

	inn := signal - (k.c[0]*xp[0] + k.c[1]*xp[1] + k.c[2]*xp[2])

	for i := 0; i < 3; i++ {
		k.x[i] = xp[i] + k.gain[i]*inn
	}

	k.x[model.Bias] = math.Max(-k.biasLim, math.Min(k.biasLim, k.x[model.Bias]))
}

// Snapshot returns the current rate, torque and bias estimates.
func (k *RTKF) Snapshot() lqg.State {
	return lqg.State{
		Rate:   k.x[model.Rate],
		Torque: k.x[model.Torque],
		Bias:   k.x[model.Bias],
	}
}

// Reset zeroes the state estimate. Covariance and gain are kept.
func (k *RTKF) Reset() {
	k.x = [3]float64{}
}

// Gain returns Kalman gain
func (k *RTKF) Gain() [3]float64 {
	return k.gain
}

// BiasLimit returns the bias estimate magnitude limit
func (k *RTKF) BiasLimit() float64 {
	return k.biasLim
}

// Model returns the discretized model the filter is built on
func (k *RTKF) Model() *model.Discrete {
	return k.m
}

// Cov returns RTKF covariance
func (k *RTKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}
