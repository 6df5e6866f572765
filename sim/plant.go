package sim

import (
	"fmt"

	lqg "github.com/milosgajdos/go-lqg"
	"github.com/milosgajdos/go-lqg/model"
	"gonum.org/v1/gonum/mat"
)

// Plant is a simulated rate plant: a rotational rate driven through a
// first order actuator lag with a constant actuator bias.
type Plant struct {
	// m is the discretized plant model
	m *model.Discrete
	// x is the true plant state: rate, torque, bias
	x *mat.VecDense
	// u is the input vector
	u *mat.VecDense
}

// NewPlant creates new Plant at rest with actuator bias and returns it.
// It returns error if either ts or tau is not strictly positive.
func NewPlant(beta, tau, ts, bias float64) (*Plant, error) {
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

	x := mat.NewVecDense(3, nil)
	x.SetVec(model.Bias, bias)

	return &Plant{
		m: d,
		x: x,
		u: mat.NewVecDense(1, nil),
	}, nil
}

// Step advances the plant by one sample period with command u applied.
func (p *Plant) Step(u float64) error {
	p.u.SetVec(0, u)

	x, err := p.m.Propagate(p.x, p.u, nil)
	if err != nil {
		return fmt.Errorf("plant state propagation failed: %v", err)
	}
	p.x.CopyVec(x)

	return nil
}

// Measure returns the plant rate perturbed by a sample of noise v.
// v may be nil for a noise-free measurement.
func (p *Plant) Measure(v lqg.Noise) (float64, error) {
	var wn mat.Vector
	if v != nil {
		wn = v.Sample()
	}

	y, err := p.m.Observe(p.x, wn)
	if err != nil {
		return 0, fmt.Errorf("failed to observe plant output: %v", err)
	}

	return y.AtVec(0), nil
}

// State returns the true plant state.
func (p *Plant) State() lqg.State {
	return lqg.State{
		Rate:   p.x.AtVec(model.Rate),
		Torque: p.x.AtVec(model.Torque),
		Bias:   p.x.AtVec(model.Bias),
	}
}

// SamplePeriod returns plant sample period.
func (p *Plant) SamplePeriod() float64 {
	return p.m.SamplePeriod()
}
