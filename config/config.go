package config

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Nominal design parameters.
const (
	DefaultBeta       = 1000.0
	DefaultTau        = 0.05
	DefaultTs         = 0.002
	DefaultR          = 100.0
	DefaultQ1         = 1.0
	DefaultQ2         = 1.0
	DefaultQ3         = 1e-4
	DefaultBiasLimit  = 0.5
	DefaultRateCost   = 1.0
	DefaultTorqueCost = 0.01
	DefaultBatch      = 100
	DefaultMaxIter    = 100000
	DefaultSteps      = 2500
	DefaultSetpoint   = 100.0
	DefaultStepAt     = 50
)

// Config is LQG design and simulation configuration.
type Config struct {
	Model           ModelConfig     `yaml:"model"`
	Estimator       EstimatorConfig `yaml:"estimator"`
	Regulator       RegulatorConfig `yaml:"regulator"`
	Design          DesignConfig    `yaml:"design"`
	Sim             SimConfig       `yaml:"sim"`
	ReferenceOffset float64         `yaml:"reference_offset"`
}

// ModelConfig holds physical model constants shared by estimator and regulator.
type ModelConfig struct {
	Beta float64 `yaml:"beta"`
	Tau  float64 `yaml:"tau"`
	Ts   float64 `yaml:"ts"`
}

// EstimatorConfig holds estimator noise parameters.
type EstimatorConfig struct {
	R         float64 `yaml:"r"`
	Q1        float64 `yaml:"q1"`
	Q2        float64 `yaml:"q2"`
	Q3        float64 `yaml:"q3"`
	BiasLimit float64 `yaml:"bias_limit"`
}

// RegulatorConfig holds regulator cost weights.
type RegulatorConfig struct {
	Q1 float64 `yaml:"q1"`
	Q2 float64 `yaml:"q2"`
}

// DesignConfig bounds the design-time convergence.
type DesignConfig struct {
	Batch         int `yaml:"batch"`
	MaxIterations int `yaml:"max_iterations"`
}

// SimConfig configures a closed loop simulation.
type SimConfig struct {
	Steps    int     `yaml:"steps"`
	Setpoint float64 `yaml:"setpoint"`
	StepAt   int     `yaml:"step_at"`
	Bias     float64 `yaml:"bias"`
	NoiseStd float64 `yaml:"noise_std"`
	Seed     uint64  `yaml:"seed"`
}

// DefaultConfig returns the nominal configuration.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Beta: DefaultBeta,
			Tau:  DefaultTau,
			Ts:   DefaultTs,
		},
		Estimator: EstimatorConfig{
			R:         DefaultR,
			Q1:        DefaultQ1,
			Q2:        DefaultQ2,
			Q3:        DefaultQ3,
			BiasLimit: DefaultBiasLimit,
		},
		Regulator: RegulatorConfig{
			Q1: DefaultRateCost,
			Q2: DefaultTorqueCost,
		},
		Design: DesignConfig{
			Batch:         DefaultBatch,
			MaxIterations: DefaultMaxIter,
		},
		Sim: SimConfig{
			Steps:    DefaultSteps,
			Setpoint: DefaultSetpoint,
			StepAt:   DefaultStepAt,
		},
	}
}

// Load reads the configuration stored in path over DefaultConfig and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate returns all configuration violations combined in a single error.
func (c *Config) Validate() error {
	var err error

	positive := func(name string, v float64) {
		if v <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be positive: %v", name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if v < 0 {
			err = multierr.Append(err, fmt.Errorf("%s must not be negative: %v", name, v))
		}
	}

	positive("model.tau", c.Model.Tau)
	positive("model.ts", c.Model.Ts)

	nonNegative("estimator.r", c.Estimator.R)
	nonNegative("estimator.q1", c.Estimator.Q1)
	nonNegative("estimator.q2", c.Estimator.Q2)
	nonNegative("estimator.q3", c.Estimator.Q3)
	nonNegative("estimator.bias_limit", c.Estimator.BiasLimit)

	nonNegative("regulator.q1", c.Regulator.Q1)
	nonNegative("regulator.q2", c.Regulator.Q2)

	positive("design.batch", float64(c.Design.Batch))
	if c.Design.MaxIterations < c.Design.Batch {
		err = multierr.Append(err, fmt.Errorf("design.max_iterations %d less than batch %d", c.Design.MaxIterations, c.Design.Batch))
	}

	positive("sim.steps", float64(c.Sim.Steps))
	nonNegative("sim.step_at", float64(c.Sim.StepAt))
	nonNegative("sim.noise_std", c.Sim.NoiseStd)

	return err
}
