package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "000300", cfg.IndexSymbol)
	assert.Equal(t, 0.20, cfg.TakeProfitPct)
	assert.Equal(t, 0.10, cfg.StopLossPct)
	assert.Equal(t, 0.90, cfg.UtilizationGate)
	assert.Equal(t, 40.0, cfg.BuyThreshold)
	assert.Equal(t, 1024, cfg.TickQueueSize)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"index_symbol: \"000905\"\ntarget_weight: 0.05\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "000905", cfg.IndexSymbol)
	assert.Equal(t, 0.05, cfg.TargetWeight)
	// Untouched keys keep defaults.
	assert.Equal(t, 0.20, cfg.TakeProfitPct)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EQUITRADER_INDEX_SYMBOL", "399001")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "399001", cfg.IndexSymbol)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cash", func(c *Config) { c.InitialCash = 0 }},
		{"negative stop", func(c *Config) { c.StopLossPct = -0.1 }},
		{"stop over 100%", func(c *Config) { c.StopLossPct = 1.5 }},
		{"zero weight", func(c *Config) { c.TargetWeight = 0 }},
		{"gate over 1", func(c *Config) { c.UtilizationGate = 1.2 }},
		{"threshold over 100", func(c *Config) { c.BuyThreshold = 120 }},
		{"empty index", func(c *Config) { c.IndexSymbol = "" }},
		{"zero queue", func(c *Config) { c.TickQueueSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
