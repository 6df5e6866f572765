package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestMaxAbs(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(2, 3, []float64{1.0, -7.5, 2.0, 3.0, 4.0, -1.0})
	assert.Equal(7.5, MaxAbs(m))

	assert.Equal(0.0, MaxAbs(mat.NewDense(2, 2, nil)))
}

func TestMaxAbsDiff(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewDense(2, 2, []float64{1.0, 2.0, 3.0, 4.0})
	b := mat.NewDense(2, 2, []float64{1.0, 2.5, 0.0, 4.0})
	assert.Equal(3.0, MaxAbsDiff(a, b))
	assert.Equal(3.0, MaxAbsDiff(b, a))

	assert.Panics(func() { MaxAbsDiff(a, mat.NewDense(3, 3, nil)) })
}

func TestConverged(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewDense(1, 2, []float64{1000.0, 0.0})
	b := mat.NewDense(1, 2, []float64{1000.0 + 1e-7, 0.0})
	assert.True(Converged(a, b, 1e-9))
	assert.False(Converged(a, b, 1e-12))

	// small magnitudes fall back to absolute tolerance
	c := mat.NewDense(1, 2, []float64{1e-6, 0.0})
	d := mat.NewDense(1, 2, []float64{2e-6, 0.0})
	assert.False(Converged(c, d, 1e-9))
	assert.True(Converged(c, d, 1e-5))
}

func TestSymmetrize(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(2, 2, []float64{1.0, 2.0, 4.0, 5.0})
	s := mat.NewSymDense(2, nil)
	Symmetrize(s, m)

	assert.Equal(1.0, s.At(0, 0))
	assert.Equal(3.0, s.At(0, 1))
	assert.Equal(3.0, s.At(1, 0))
	assert.Equal(5.0, s.At(1, 1))

	assert.Panics(func() { Symmetrize(s, mat.NewDense(3, 3, nil)) })
}
