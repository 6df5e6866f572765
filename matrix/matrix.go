package matrix

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MaxAbs returns the largest absolute element of m.
// It panics if m is nil.
func MaxAbs(m mat.Matrix) float64 {
	d := mat.DenseCopyOf(m)
	rows, _ := d.Dims()

	max := 0.0
	for i := 0; i < rows; i++ {
		max = math.Max(max, floats.Norm(d.RawRowView(i), math.Inf(1)))
	}

	return max
}

// MaxAbsDiff returns the largest absolute element of a - b.
// It panics if a and b do not have the same dimensions.
func MaxAbsDiff(a, b mat.Matrix) float64 {
	d := &mat.Dense{}
	d.Sub(a, b)

	return MaxAbs(d)
}

// Converged returns true if next differs from prev by no more than tol
// relative to the magnitude of next. Magnitudes below 1 are treated as 1
// so that the check degrades to an absolute tolerance around zero.
func Converged(prev, next mat.Matrix, tol float64) bool {
	return MaxAbsDiff(prev, next) <= tol*math.Max(1, MaxAbs(next))
}

// Symmetrize stores the symmetric part (m + m')/2 of square matrix m in dst.
// It panics if m is not square or its size differs from dst.
func Symmetrize(dst *mat.SymDense, m mat.Matrix) {
	n := dst.SymmetricDim()
	r, c := m.Dims()
	if r != n || c != n {
		panic(mat.ErrShape)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
}
