package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"

	"github.com/edaniels/golog"
	mx "github.com/milosgajdos/matrix"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	lqg "github.com/milosgajdos/go-lqg"
	"github.com/milosgajdos/go-lqg/config"
	"github.com/milosgajdos/go-lqg/design"
	"github.com/milosgajdos/go-lqg/lqr"
	"github.com/milosgajdos/go-lqg/noise"
	"github.com/milosgajdos/go-lqg/rtkf"
	"github.com/milosgajdos/go-lqg/sim"
)

var (
	configFile string
	steps      int
	setpoint   float64
	bias       float64
	noiseStd   float64
	seed       uint64
	plotFile   string
	outFile    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "lqgsim",
		Short:        "LQG rate controller design and simulation",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	gainsCmd := &cobra.Command{
		Use:   "gains",
		Short: "solve the design and print converged gains",
		RunE:  runGains,
	}

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "simulate a closed loop step response",
		RunE:  runSim,
	}
	simCmd.Flags().IntVar(&steps, "steps", 0, "number of samples (overrides config)")
	simCmd.Flags().Float64Var(&setpoint, "setpoint", math.NaN(), "step setpoint (overrides config)")
	simCmd.Flags().Float64Var(&bias, "bias", math.NaN(), "true actuator bias (overrides config)")
	simCmd.Flags().Float64Var(&noiseStd, "noise", math.NaN(), "measurement noise std (overrides config)")
	simCmd.Flags().Uint64Var(&seed, "seed", 0, "noise seed (overrides config)")
	simCmd.Flags().StringVar(&plotFile, "plot", "", "save step response plot to file (png, svg, pdf)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		RunE:  runConfig,
	}
	configCmd.Flags().StringVar(&outFile, "out", "", "write configuration to file instead of stdout")

	rootCmd.AddCommand(gainsCmd, simCmd, configCmd)

	return rootCmd
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configFile)
}

func runGains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := golog.NewDevelopmentLogger("lqgsim")

	c, err := design.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	est := c.Estimator().(*rtkf.RTKF)
	reg := c.Regulator().(*lqr.LQR)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "kalman gain: %v\n", est.Gain())
	fmt.Fprintf(out, "estimator covariance:\n%v\n", mx.Format(est.Cov()))
	fmt.Fprintf(out, "lqr gain: %v\n", reg.Gains())
	fmt.Fprintf(out, "riccati solution:\n%v\n", mx.Format(reg.Cov()))

	return nil
}

func runSim(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if steps > 0 {
		cfg.Sim.Steps = steps
	}
	if !math.IsNaN(setpoint) {
		cfg.Sim.Setpoint = setpoint
	}
	if !math.IsNaN(bias) {
		cfg.Sim.Bias = bias
	}
	if !math.IsNaN(noiseStd) {
		cfg.Sim.NoiseStd = noiseStd
	}
	if cmd.Flags().Changed("seed") {
		cfg.Sim.Seed = seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := golog.NewDevelopmentLogger("lqgsim")

	c, err := design.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	p, err := sim.NewPlant(cfg.Model.Beta, cfg.Model.Tau, cfg.Model.Ts, cfg.Sim.Bias)
	if err != nil {
		return err
	}

	var v lqg.Noise
	if cfg.Sim.NoiseStd > 0 {
		g, err := noise.NewScalarGaussian(cfg.Sim.NoiseStd, cfg.Sim.Seed)
		if err != nil {
			return err
		}
		v = g
	}

	ref := sim.Step(cfg.Sim.Setpoint, cfg.Sim.StepAt)

	tr, err := sim.Run(c, p, ref, cfg.Sim.Steps, v)
	if err != nil {
		return err
	}

	final := p.State()
	est := c.Snapshot()
	logger.Infow("simulation done",
		"steps", tr.Len(),
		"rms_error", tr.RMSError(tr.Len()/2),
		"mean_effort", tr.MeanEffort(),
		"rate", final.Rate,
		"bias", final.Bias,
		"estimated_bias", est.Bias,
	)

	if plotFile != "" {
		plt, err := sim.NewStepPlot(tr)
		if err != nil {
			return err
		}
		if err := plt.Save(6*vg.Inch, 4*vg.Inch, plotFile); err != nil {
			return fmt.Errorf("failed to save plot: %w", err)
		}
		logger.Infow("plot saved", "file", plotFile)
	}

	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if outFile != "" {
		return config.Save(outFile, cfg)
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))

	return nil
}
