// Package config loads nutrisolve configuration: a YAML file under
// ~/.nutrisolve/ overlaid with NUTRISOLVE_* environment variables. CLI flags
// take precedence over both; precedence is resolved in the cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration document.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Solver  SolverConfig  `yaml:"solver"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// LoggingConfig mirrors logging.Config in file form.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// SolverConfig holds engine defaults. The tolerance pair is deliberately
// asymmetric: the formula optimizer holds a tight 1% band while dosing
// shared stocks across several targets gets 15%.
type SolverConfig struct {
	// Tolerance is the optimizer's relative nutrient band.
	Tolerance float64 `yaml:"tolerance"`
	// RatioTolerance is the stock-plan dosing shape tolerance.
	RatioTolerance float64 `yaml:"ratio_tolerance"`
	// IonicStrengthK is the EC model's empirical damping constant.
	IonicStrengthK float64 `yaml:"ionic_strength_k"`
	// StockConcentration is the default requested stock strength.
	StockConcentration float64 `yaml:"stock_concentration"`
	// MaxDosingML is the default per-liter dosing volume cap.
	MaxDosingML float64 `yaml:"max_dosing_ml"`
	// Strategy is the default solving path: auto, milp or nnls.
	Strategy string `yaml:"strategy"`
}

// CatalogConfig points at an optional user fertilizer catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Solver: SolverConfig{
			Tolerance:          0.01,
			RatioTolerance:     0.15,
			IonicStrengthK:     0.5,
			StockConcentration: 100,
			MaxDosingML:        20,
			Strategy:           "auto",
		},
	}
}

// DefaultPath returns ~/.nutrisolve/config.yaml, or "" when no home
// directory can be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nutrisolve", "config.yaml")
}

// Load reads path (DefaultPath when empty), merges it over defaults, then
// applies environment overrides. A missing file is not an error; a malformed
// one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
			// No config file is the common case.
		default:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays NUTRISOLVE_* variables.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("NUTRISOLVE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("NUTRISOLVE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := getenv("NUTRISOLVE_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := getenv("NUTRISOLVE_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := getenv("NUTRISOLVE_STRATEGY"); v != "" {
		c.Solver.Strategy = v
	}
	if v := getenv("NUTRISOLVE_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Solver.Tolerance = f
		}
	}
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	if c.Solver.Tolerance <= 0 || c.Solver.Tolerance >= 1 {
		return fmt.Errorf("config: tolerance %.4g out of range (0, 1)", c.Solver.Tolerance)
	}
	if c.Solver.RatioTolerance <= 0 || c.Solver.RatioTolerance >= 1 {
		return fmt.Errorf("config: ratio_tolerance %.4g out of range (0, 1)", c.Solver.RatioTolerance)
	}
	if c.Solver.IonicStrengthK < 0 {
		return errors.New("config: ionic_strength_k must be non-negative")
	}
	if c.Solver.StockConcentration <= 0 {
		return errors.New("config: stock_concentration must be positive")
	}
	if c.Solver.MaxDosingML <= 0 {
		return errors.New("config: max_dosing_ml must be positive")
	}
	switch c.Solver.Strategy {
	case "auto", "milp", "nnls":
	default:
		return fmt.Errorf("config: unknown strategy %q", c.Solver.Strategy)
	}
	return nil
}
