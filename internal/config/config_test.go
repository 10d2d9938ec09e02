package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.InDelta(t, 0.01, cfg.Solver.Tolerance, 1e-12)
	assert.InDelta(t, 0.15, cfg.Solver.RatioTolerance, 1e-12)
	assert.InDelta(t, 0.5, cfg.Solver.IonicStrengthK, 1e-12)
	assert.Equal(t, "auto", cfg.Solver.Strategy)
}

func TestLoad(t *testing.T) {
	t.Run("file values merge over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
solver:
  tolerance: 0.05
  strategy: nnls
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.InDelta(t, 0.05, cfg.Solver.Tolerance, 1e-12)
		assert.Equal(t, "nnls", cfg.Solver.Strategy)
		// Untouched keys keep their defaults.
		assert.InDelta(t, 0.15, cfg.Solver.RatioTolerance, 1e-12)
	})

	t.Run("explicitly named missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("solver: [broken"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("solver:\n  tolerance: 2.0\n"), 0o600))
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tolerance")
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"NUTRISOLVE_LOG_LEVEL": "warn",
		"NUTRISOLVE_STRATEGY":  "milp",
		"NUTRISOLVE_TOLERANCE": "0.02",
		"NUTRISOLVE_CATALOG":   "/tmp/salts.yaml",
	}
	cfg := Default()
	cfg.applyEnv(func(key string) string { return env[key] })

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "milp", cfg.Solver.Strategy)
	assert.InDelta(t, 0.02, cfg.Solver.Tolerance, 1e-12)
	assert.Equal(t, "/tmp/salts.yaml", cfg.Catalog.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tolerance", func(c *Config) { c.Solver.Tolerance = 0 }},
		{"ratio tolerance over one", func(c *Config) { c.Solver.RatioTolerance = 1.5 }},
		{"negative ionic strength k", func(c *Config) { c.Solver.IonicStrengthK = -1 }},
		{"zero stock concentration", func(c *Config) { c.Solver.StockConcentration = 0 }},
		{"zero dosing cap", func(c *Config) { c.Solver.MaxDosingML = 0 }},
		{"unknown strategy", func(c *Config) { c.Solver.Strategy = "brute-force" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
