package model

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

const (
	beta = 1000.0
	tau  = 0.05
	ts   = 0.002
)

var (
	x, u, wd *mat.VecDense
	A, B, C  *mat.Dense
)

func setup() {
	x = mat.NewVecDense(2, []float64{0.5, 0.6})
	u = mat.NewVecDense(1, []float64{-1.0})

	// process noise
	wd = mat.NewVecDense(2, []float64{0.1, 0.0})

	A = mat.NewDense(2, 2, []float64{1.0, 1.0, 0.0, 1.0})
	B = mat.NewDense(2, 1, []float64{0.5, 1.0})
	C = mat.NewDense(1, 2, []float64{1.0, 0.0})
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func TestNewContinuous(t *testing.T) {
	assert := assert.New(t)

	c, err := NewContinuous(A, B, C)
	assert.NotNil(c)
	assert.NoError(err)

	nx, nu, ny := c.SystemDims()
	assert.Equal(2, nx)
	assert.Equal(1, nu)
	assert.Equal(1, ny)

	c, err = NewContinuous(nil, B, C)
	assert.Nil(c)
	assert.Error(err)

	c, err = NewContinuous(mat.NewDense(2, 3, nil), B, C)
	assert.Nil(c)
	assert.Error(err)
}

func TestNewDiscrete(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiscrete(A, B, C, ts)
	assert.NotNil(d)
	assert.NoError(err)
	assert.Equal(ts, d.SamplePeriod())

	d, err = NewDiscrete(nil, B, C, ts)
	assert.Nil(d)
	assert.Error(err)

	d, err = NewDiscrete(A, B, C, 0.0)
	assert.Nil(d)
	assert.Error(err)
}

func TestDiscretePropagate(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiscrete(A, B, C, ts)
	assert.NoError(err)

	v, err := d.Propagate(x, u, nil)
	assert.NoError(err)
	assert.InDelta(0.5+0.6-0.5, v.AtVec(0), 1e-12)
	assert.InDelta(0.6-1.0, v.AtVec(1), 1e-12)

	v, err = d.Propagate(x, u, wd)
	assert.NoError(err)
	assert.InDelta(0.6+0.1, v.AtVec(0), 1e-12)

	_u := mat.NewVecDense(10, nil)
	v, err = d.Propagate(x, _u, nil)
	assert.Nil(v)
	assert.Error(err)

	_x := mat.NewVecDense(10, nil)
	v, err = d.Propagate(_x, u, nil)
	assert.Nil(v)
	assert.Error(err)
}

func TestDiscreteObserve(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiscrete(A, B, C, ts)
	assert.NoError(err)

	y, err := d.Observe(x, nil)
	assert.NoError(err)
	assert.Equal(0.5, y.AtVec(0))

	y, err = d.Observe(x, mat.NewVecDense(1, []float64{0.25}))
	assert.NoError(err)
	assert.Equal(0.75, y.AtVec(0))

	_x := mat.NewVecDense(10, nil)
	y, err = d.Observe(_x, nil)
	assert.Nil(y)
	assert.Error(err)

	d, err = NewDiscrete(A, B, nil, ts)
	assert.NoError(err)
	y, err = d.Observe(x, nil)
	assert.Nil(y)
	assert.Error(err)
}

func TestToDiscrete(t *testing.T) {
	assert := assert.New(t)

	c, err := NewBiasedActuator(beta, tau)
	assert.NoError(err)

	d, err := c.ToDiscrete(ts)
	assert.NotNil(d)
	assert.NoError(err)

	a := math.Exp(-ts / tau)
	b0 := beta * (ts - tau*(1-a))

	want := mat.NewDense(3, 3, []float64{
		1.0, beta * tau * (1 - a), b0,
		0.0, a, 1 - a,
		0.0, 0.0, 1.0,
	})
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(want.At(i, j), d.A.At(i, j), 1e-9, "A[%d][%d]", i, j)
		}
	}

	assert.InDelta(b0, d.B.At(0, 0), 1e-9)
	assert.InDelta(1-a, d.B.At(1, 0), 1e-9)
	assert.InDelta(0.0, d.B.At(2, 0), 1e-12)
	assert.Equal(1.0, d.C.At(0, 0))

	d, err = c.ToDiscrete(-1.0)
	assert.Nil(d)
	assert.Error(err)
}

func TestActuator(t *testing.T) {
	assert := assert.New(t)

	c, err := NewActuator(beta, tau)
	assert.NoError(err)

	nx, nu, ny := c.SystemDims()
	assert.Equal(2, nx)
	assert.Equal(1, nu)
	assert.Equal(1, ny)

	// the actuator block of the biased model matches the plain one
	cb, err := NewBiasedActuator(beta, tau)
	assert.NoError(err)
	d, err := c.ToDiscrete(ts)
	assert.NoError(err)
	db, err := cb.ToDiscrete(ts)
	assert.NoError(err)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(db.A.At(i, j), d.A.At(i, j), 1e-10)
		}
		assert.InDelta(db.B.At(i, 0), d.B.At(i, 0), 1e-10)
	}

	c, err = NewActuator(beta, 0.0)
	assert.Nil(c)
	assert.Error(err)

	cb, err = NewBiasedActuator(beta, -tau)
	assert.Nil(cb)
	assert.Error(err)
}
