package controller

import (
	"fmt"

	lqg "github.com/milosgajdos/go-lqg"
)

// LQG binds an Estimator and a Regulator into a rate controller.
// It does not own either of them: both must outlive the controller.
type LQG struct {
	// est is state estimator
	est lqg.Estimator
	// reg is state feedback regulator
	reg lqg.Regulator
	// x0 is reference offset subtracted from tracking error
	x0 float64
	// u is the last issued command
	u float64
}

// New creates new LQG controller from est and reg and returns it.
// It returns error if either est or reg is nil.
func New(est lqg.Estimator, reg lqg.Regulator) (*LQG, error) {
	if est == nil {
		return nil, fmt.Errorf("invalid estimator: %v", est)
	}

	if reg == nil {
		return nil, fmt.Errorf("invalid regulator: %v", reg)
	}

	return &LQG{
		est: est,
		reg: reg,
	}, nil
}

// IsSolved returns true if both estimator and regulator have converged.
func (c *LQG) IsSolved() bool {
	return c.est.IsSolved() && c.reg.IsSolved()
}

// RunCovariance runs n iterations of both estimator and regulator recursions.
// Its run time is proportional to n: it must not be called from the control loop.
func (c *LQG) RunCovariance(n int) {
	c.est.StabilizeCovariance(n)
	c.reg.StabilizeCovariance(n)
}

// SetReferenceOffset sets offset x0 subtracted from the tracking error.
func (c *LQG) SetReferenceOffset(x0 float64) {
	c.x0 = x0
}

// ReferenceOffset returns the reference offset.
func (c *LQG) ReferenceOffset() float64 {
	return c.x0
}

// Control runs a single control cycle: it updates the estimate with
// measurement signal and the previously issued command and returns the
// new command driving the estimated rate towards setpoint.
//
// The regulator sees the [error, torque] state only, the estimated
// actuator bias is cancelled directly:
//
//	u = K[0]*error - K[1]*torque - bias
//
// Control must be called exactly once per sample period. The output is not saturated.
func (c *LQG) Control(signal, setpoint float64) float64 {
	c.est.Update(signal, c.u)
	s := c.est.Snapshot()

	err := setpoint - s.Rate - c.x0
	k := c.reg.Gains()

	c.u = k[0]*err - k[1]*s.Torque - s.Bias

	return c.u
}

// LastCommand returns the last command returned by Control.
func (c *LQG) LastCommand() float64 {
	return c.u
}

// Snapshot returns the estimated rate, torque and bias.
func (c *LQG) Snapshot() lqg.State {
	return c.est.Snapshot()
}

// Estimator returns the bound estimator.
func (c *LQG) Estimator() lqg.Estimator {
	return c.est
}

// Regulator returns the bound regulator.
func (c *LQG) Regulator() lqg.Regulator {
	return c.reg
}
