package design

import (
	"context"
	"errors"
	"fmt"

	"github.com/edaniels/golog"

	"github.com/milosgajdos/go-lqg/config"
	"github.com/milosgajdos/go-lqg/controller"
	"github.com/milosgajdos/go-lqg/lqr"
	"github.com/milosgajdos/go-lqg/rtkf"
)

// ErrNotConverged is returned when a recursion does not converge within the iteration budget.
var ErrNotConverged = errors.New("not converged")

// NewEstimator creates an unsolved estimator from cfg.
func NewEstimator(cfg *config.Config) (*rtkf.RTKF, error) {
	m, e := cfg.Model, cfg.Estimator
	return rtkf.New(m.Beta, m.Tau, m.Ts, e.R, e.Q1, e.Q2, e.Q3, e.BiasLimit)
}

// NewRegulator creates an unsolved regulator from cfg.
func NewRegulator(cfg *config.Config) (*lqr.LQR, error) {
	m, r := cfg.Model, cfg.Regulator
	return lqr.New(m.Beta, m.Tau, m.Ts, r.Q1, r.Q2)
}

// Build validates cfg, creates an estimator and a regulator and drives both
// to convergence in batches of cfg.Design.Batch iterations. The returned
// controller is solved: it is safe to arm. ctx is checked between batches.
// It returns error wrapping ErrNotConverged if cfg.Design.MaxIterations are exhausted.
func Build(ctx context.Context, cfg *config.Config, logger golog.Logger) (*controller.LQG, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	est, err := NewEstimator(cfg)
	if err != nil {
		return nil, err
	}

	reg, err := NewRegulator(cfg)
	if err != nil {
		return nil, err
	}

	c, err := controller.New(est, reg)
	if err != nil {
		return nil, err
	}
	c.SetReferenceOffset(cfg.ReferenceOffset)

	n, err := stabilize(ctx, c.RunCovariance, c.IsSolved, cfg.Design)
	if err != nil {
		logger.Warnw("design failed", "iterations", n, "estimator_solved", est.IsSolved(), "regulator_solved", reg.IsSolved())
		return nil, err
	}

	logger.Infow("design converged", "iterations", n, "kalman_gain", est.Gain(), "lqr_gain", reg.Gains())

	return c, nil
}

// BuildBank builds one solved controller per configuration and stores them in a Bank
// in the order given. Handle i addresses the controller built from cfgs[i].
func BuildBank(ctx context.Context, cfgs []*config.Config, logger golog.Logger) (*controller.Bank, error) {
	b, err := controller.NewBank(len(cfgs))
	if err != nil {
		return nil, err
	}

	for i, cfg := range cfgs {
		c, err := Build(ctx, cfg, logger.Named(fmt.Sprintf("axis%d", i)))
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
		if _, err := b.Add(c); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Retune updates the regulator cost weights of c and re-stabilizes it.
// Negative weights are rejected and leave c untouched. Retune must not run
// concurrently with c.Control.
// It returns error wrapping ErrNotConverged if d.MaxIterations are exhausted,
// or the ctx error if ctx is done. On either error the regulator keeps the new
// weights with a partially stabilized gain and c is no longer solved: it must
// not be armed until a later Retune or c.RunCovariance brings it back to solved.
func Retune(ctx context.Context, c *controller.LQG, q1, q2 float64, d config.DesignConfig, logger golog.Logger) error {
	if q1 < 0 || q2 < 0 {
		return fmt.Errorf("invalid cost weights: q1 %v, q2 %v", q1, q2)
	}

	reg := c.Regulator()
	reg.Update(q1, q2)

	n, err := stabilize(ctx, reg.StabilizeCovariance, reg.IsSolved, d)
	if err != nil {
		logger.Warnw("retune failed", "q1", q1, "q2", q2, "iterations", n)
		return err
	}

	logger.Infow("regulator retuned", "q1", q1, "q2", q2, "iterations", n, "lqr_gain", reg.Gains())

	return nil
}

// stabilize calls step in batches until solved returns true or the
// iteration budget is exhausted. It returns the number of iterations run.
func stabilize(ctx context.Context, step func(int), solved func() bool, d config.DesignConfig) (int, error) {
	if d.Batch <= 0 {
		return 0, fmt.Errorf("invalid batch size: %d", d.Batch)
	}

	n := 0
	for !solved() {
		if n >= d.MaxIterations {
			return n, fmt.Errorf("%w after %d iterations", ErrNotConverged, n)
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}

		batch := d.Batch
		if rem := d.MaxIterations - n; rem < batch {
			batch = rem
		}
		step(batch)
		n += batch
	}

	return n, nil
}
