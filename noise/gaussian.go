package noise

import (
	"fmt"

	"golang.org/x/exp/rand"

	lqg "github.com/milosgajdos/go-lqg"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise drawn from a seeded source.
// Two Gaussians created with the same parameters produce the same samples.
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
	// seed seeds the random source
	seed uint64
}

var _ lqg.Noise = (*Gaussian)(nil)

// NewGaussian creates new Gaussian noise with given mean, covariance and seed.
// It returns error if mean and cov dimensions differ or cov is not positive definite.
func NewGaussian(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	if len(mean) != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid noise dimensions: mean %d, cov %d", len(mean), cov.SymmetricDim())
	}

	m := make([]float64, len(mean))
	copy(m, mean)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	dist, ok := newGaussianDist(m, c, seed)
	if !ok {
		return nil, fmt.Errorf("failed to create new Gaussian noise")
	}

	return &Gaussian{
		dist: dist,
		mean: m,
		cov:  c,
		seed: seed,
	}, nil
}

// NewScalarGaussian creates one dimensional zero mean Gaussian noise with standard deviation std.
// It returns error if std is not strictly positive.
func NewScalarGaussian(std float64, seed uint64) (*Gaussian, error) {
	if std <= 0 {
		return nil, fmt.Errorf("invalid standard deviation: %v", std)
	}
	return NewGaussian([]float64{0}, mat.NewSymDense(1, []float64{std * std}), seed)
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	mean := make([]float64, len(g.mean))
	copy(mean, g.mean)

	return mean
}

// Reset rewinds the noise to the start of its sample sequence.
func (g *Gaussian) Reset() {
	// parameters were validated in NewGaussian
	g.dist, _ = newGaussianDist(g.mean, g.cov, g.seed)
}

func newGaussianDist(mean []float64, cov mat.Symmetric, seed uint64) (*distmv.Normal, bool) {
	src := rand.NewSource(seed)
	return distmv.NewNormal(mean, cov, src)
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
