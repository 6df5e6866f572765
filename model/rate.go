package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Indices of the rate model state vector.
const (
	Rate = iota
	Torque
	Bias
)

// NewActuator creates a continuous model of a rotational rate driven
// through a first order actuator lag:
//
//	d(rate)/dt   = beta*torque
//	d(torque)/dt = (u - torque)/tau
//
// The state vector is [rate, torque] and the output is rate.
// It returns error if tau is not strictly positive.
func NewActuator(beta, tau float64) (*Continuous, error) {
	if tau <= 0 {
		return nil, fmt.Errorf("invalid actuator time constant: %v", tau)
	}

	A := mat.NewDense(2, 2, []float64{
		0.0, beta,
		0.0, -1.0 / tau,
	})
	B := mat.NewDense(2, 1, []float64{0.0, 1.0 / tau})
	C := mat.NewDense(1, 2, []float64{1.0, 0.0})

	return NewContinuous(A, B, C)
}

// NewBiasedActuator extends NewActuator with a bias state which offsets
// the actuator input and is otherwise constant:
//
//	d(torque)/dt = (u + bias - torque)/tau
//	d(bias)/dt   = 0
//
// The state vector is [rate, torque, bias] and the output is rate.
// It returns error if tau is not strictly positive.
func NewBiasedActuator(beta, tau float64) (*Continuous, error) {
	if tau <= 0 {
		return nil, fmt.Errorf("invalid actuator time constant: %v", tau)
	}

	A := mat.NewDense(3, 3, []float64{
		0.0, beta, 0.0,
		0.0, -1.0 / tau, 1.0 / tau,
		0.0, 0.0, 0.0,
	})
	B := mat.NewDense(3, 1, []float64{0.0, 1.0 / tau, 0.0})
	C := mat.NewDense(1, 3, []float64{1.0, 0.0, 0.0})

	return NewContinuous(A, B, C)
}
