package sim

import (
	"fmt"
	"math"

	lqg "github.com/milosgajdos/go-lqg"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Trace columns.
const (
	Time = iota
	Setpoint
	Rate
	Measurement
	EstRate
	EstTorque
	EstBias
	Command
	numCols
)

// Controller is a rate controller run once per sample period.
type Controller interface {
	// Control returns command given rate measurement and setpoint
	Control(signal, setpoint float64) float64
	// Snapshot returns the controller state estimate
	Snapshot() lqg.State
}

// Reference returns the setpoint of the k-th sample.
type Reference func(k int) float64

// Step returns a Reference which switches from 0 to amplitude at sample at.
func Step(amplitude float64, at int) Reference {
	return func(k int) float64 {
		if k < at {
			return 0
		}
		return amplitude
	}
}

// Trace is a record of a closed loop simulation, one row per sample.
type Trace struct {
	data *mat.Dense
}

// Run simulates steps sample periods of plant p controlled by c tracking ref.
// Measurements are perturbed by samples of v if it is not nil.
// It returns error if steps is not positive or the plant fails to propagate.
func Run(c Controller, p *Plant, ref Reference, steps int, v lqg.Noise) (*Trace, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("invalid number of steps: %d", steps)
	}

	data := mat.NewDense(steps, numCols, nil)
	ts := p.SamplePeriod()

	for k := 0; k < steps; k++ {
		y, err := p.Measure(v)
		if err != nil {
			return nil, err
		}

		sp := ref(k)
		u := c.Control(y, sp)
		est := c.Snapshot()

		data.SetRow(k, []float64{
			float64(k) * ts,
			sp,
			p.State().Rate,
			y,
			est.Rate,
			est.Torque,
			est.Bias,
			u,
		})

		if err := p.Step(u); err != nil {
			return nil, err
		}
	}

	return &Trace{data: data}, nil
}

// Len returns the number of recorded samples.
func (t *Trace) Len() int {
	r, _ := t.data.Dims()
	return r
}

// Col returns a copy of trace column col.
func (t *Trace) Col(col int) []float64 {
	return mat.Col(nil, col, t.data)
}

// Data returns a copy of the trace data.
func (t *Trace) Data() *mat.Dense {
	return mat.DenseCopyOf(t.data)
}

// RMSError returns the root mean square tracking error of the true rate from sample from onwards.
func (t *Trace) RMSError(from int) float64 {
	if from < 0 || from >= t.Len() {
		return math.NaN()
	}

	e := t.Col(Setpoint)[from:]
	floats.Sub(e, t.Col(Rate)[from:])

	return floats.Norm(e, 2) / math.Sqrt(float64(len(e)))
}

// MeanEffort returns the mean absolute command.
func (t *Trace) MeanEffort() float64 {
	u := t.Col(Command)
	for i := range u {
		u[i] = math.Abs(u[i])
	}

	return stat.Mean(u, nil)
}
