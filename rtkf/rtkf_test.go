package rtkf

import (
	"errors"
	"math"
	"testing"

	lqg "github.com/milosgajdos/go-lqg"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

const (
	beta    = 1000.0
	tau     = 0.05
	ts      = 0.002
	r       = 100.0
	q1      = 1.0
	q2      = 1.0
	q3      = 1e-4
	biasLim = 0.5
)

func newNominal(t *testing.T) *RTKF {
	f, err := New(beta, tau, ts, r, q1, q2, q3, biasLim)
	if err != nil {
		t.Fatalf("failed to create RTKF: %v", err)
	}
	return f
}

func solve(t *testing.T, f *RTKF) {
	for i := 0; i < 1000 && !f.IsSolved(); i++ {
		f.StabilizeCovariance(100)
	}
	if !f.IsSolved() {
		t.Fatalf("RTKF covariance did not converge")
	}
}

func TestRTKFNew(t *testing.T) {
	assert := assert.New(t)

	f, err := New(beta, tau, ts, r, q1, q2, q3, biasLim)
	assert.NotNil(f)
	assert.NoError(err)
	assert.False(f.IsSolved())
	assert.Equal([3]float64{}, f.Gain())
	assert.Equal(lqg.State{}, f.Snapshot())

	cov := f.Cov()
	for i := 0; i < cov.SymmetricDim(); i++ {
		assert.Equal(InitCov, cov.At(i, i))
	}

	// invalid sample period
	f, err = New(beta, tau, 0.0, r, q1, q2, q3, biasLim)
	assert.Nil(f)
	assert.True(errors.Is(err, lqg.ErrInvalidParameter))

	// invalid time constant
	f, err = New(beta, -tau, ts, r, q1, q2, q3, biasLim)
	assert.Nil(f)
	assert.True(errors.Is(err, lqg.ErrInvalidParameter))

	// negative bias limit is taken by magnitude
	f, err = New(beta, tau, ts, r, q1, q2, q3, -biasLim)
	assert.NoError(err)
	assert.Equal(biasLim, f.BiasLimit())
}

func TestRTKFStabilizeCovariance(t *testing.T) {
	assert := assert.New(t)

	f := newNominal(t)

	// no iterations, no change
	f.StabilizeCovariance(0)
	assert.False(f.IsSolved())
	assert.Equal([3]float64{}, f.Gain())

	var deltas []float64
	prev := f.Gain()
	for i := 0; i < 10000 && !f.IsSolved(); i++ {
		f.StabilizeCovariance(5)
		g := f.Gain()
		d := 0.0
		for j := range g {
			d = math.Max(d, math.Abs(g[j]-prev[j]))
		}
		deltas = append(deltas, d)
		prev = g
	}
	assert.True(f.IsSolved())
	assert.True(len(deltas) > 2)
	assert.Less(deltas[len(deltas)-1], deltas[0])

	// largest gain change over windows of 200 iterations never grows
	const window = 40
	envelope := []float64{}
	for i := 0; i < len(deltas); i += window {
		end := i + window
		if end > len(deltas) {
			end = len(deltas)
		}
		m := 0.0
		for _, d := range deltas[i:end] {
			m = math.Max(m, d)
		}
		envelope = append(envelope, m)
	}
	for i := 1; i < len(envelope); i++ {
		assert.LessOrEqual(envelope[i], envelope[i-1]+1e-12, "window %d", i)
	}

	gain := f.Gain()
	assert.Greater(gain[0], 0.0)
	assert.Less(gain[0], 1.0)
	assert.NotEqual(0.0, gain[2])

	// solved is a fixed point
	f.StabilizeCovariance(1000)
	assert.True(f.IsSolved())
	assert.Equal(gain, f.Gain())
}

func TestRTKFStabilizeNonPositiveInnovation(t *testing.T) {
	assert := assert.New(t)

	// negative measurement variance drives the innovation variance
	// below zero on the second iteration
	f, err := New(beta, tau, ts, -2e5, q1, q2, q3, biasLim)
	assert.NoError(err)

	f.StabilizeCovariance(10)
	assert.False(f.IsSolved())

	// gain from the first iteration is published
	g := f.Gain()
	assert.Greater(g[0], 1.0)
	for i := range g {
		assert.Equal(f.k.At(i, 0), g[i])
	}
}

func TestRTKFCovariancePSD(t *testing.T) {
	assert := assert.New(t)

	f := newNominal(t)

	for i := 0; i < 20; i++ {
		f.StabilizeCovariance(10)

		cov := f.Cov()
		for j := 0; j < cov.SymmetricDim(); j++ {
			for k := 0; k < cov.SymmetricDim(); k++ {
				assert.Equal(cov.At(j, k), cov.At(k, j))
			}
		}

		var eig mat.EigenSym
		ok := eig.Factorize(cov, false)
		assert.True(ok)
		for _, v := range eig.Values(nil) {
			assert.GreaterOrEqual(v, -1e-9)
		}
	}
}

func TestRTKFUpdateTracksBias(t *testing.T) {
	assert := assert.New(t)

	f := newNominal(t)
	solve(t, f)

	// a command cancelling the actuator bias keeps the true rate at zero,
	// which is only consistent with the bias the command cancels
	bias := 0.2
	for i := 0; i < 5000; i++ {
		f.Update(0.0, -bias)
	}

	s := f.Snapshot()
	assert.InDelta(bias, s.Bias, 1e-3)
	assert.InDelta(0.0, s.Rate, 1e-3)
	assert.InDelta(0.0, s.Torque, 1e-3)
}

func TestRTKFBiasClamp(t *testing.T) {
	assert := assert.New(t)

	f := newNominal(t)
	solve(t, f)

	clamped := false
	for i := 0; i < 2000; i++ {
		// rate ramping away with no command: a large positive bias
		f.Update(10.0*float64(i), 0.0)
		s := f.Snapshot()
		assert.LessOrEqual(s.Bias, biasLim)
		assert.GreaterOrEqual(s.Bias, -biasLim)
		if s.Bias == biasLim {
			clamped = true
		}
	}
	assert.True(clamped)

	for i := 0; i < 2000; i++ {
		f.Update(-10.0*float64(i), 0.0)
		s := f.Snapshot()
		assert.LessOrEqual(s.Bias, biasLim)
		assert.GreaterOrEqual(s.Bias, -biasLim)
	}
	assert.Equal(-biasLim, f.Snapshot().Bias)
}

func TestRTKFSnapshotReset(t *testing.T) {
	assert := assert.New(t)

	f := newNominal(t)
	solve(t, f)

	f.Update(5.0, 0.1)
	s := f.Snapshot()
	assert.Equal(s, f.Snapshot())
	assert.NotEqual(lqg.State{}, s)

	gain := f.Gain()
	f.Reset()
	assert.Equal(lqg.State{}, f.Snapshot())
	assert.Equal(gain, f.Gain())
	assert.True(f.IsSolved())
}

func TestRTKFModel(t *testing.T) {
	assert := assert.New(t)

	f := newNominal(t)

	m := f.Model()
	assert.NotNil(m)
	assert.Equal(ts, m.SamplePeriod())

	nx, nu, ny := m.SystemDims()
	assert.Equal(3, nx)
	assert.Equal(1, nu)
	assert.Equal(1, ny)
}
