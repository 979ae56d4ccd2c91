package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	confirm, err := cfg.Polling.ConfirmInterval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, confirm)

	primary, err := cfg.Polling.PrimaryInterval()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, primary)

	hours, err := cfg.Session.Hours()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, hours.NoNewTradesBefore)
}

func TestLoadFromFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scanner:
  underlying: BANKNIFTY
  option_type: CE
  strike_step: 100
  premium_min: 80
  premium_max: 200
risk:
  fraction: 0.5
polling:
  confirm_every: 2s
  cooldown: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "BANKNIFTY", cfg.Scanner.Underlying)
	assert.Equal(t, 0.5, cfg.Risk.Fraction)

	// Unspecified sections keep defaults.
	assert.Equal(t, "csv", cfg.Journal.Type)
	assert.Equal(t, 14, cfg.Indicators.RSIPeriod)

	confirm, err := cfg.Polling.ConfirmInterval()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, confirm)

	cooldown, err := cfg.Polling.CooldownInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cooldown)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty underlying", func(c *Config) { c.Scanner.Underlying = "" }},
		{"bad option type", func(c *Config) { c.Scanner.OptionType = "FUT" }},
		{"inverted premium band", func(c *Config) { c.Scanner.PremiumMin = 200; c.Scanner.PremiumMax = 100 }},
		{"zero fraction", func(c *Config) { c.Risk.Fraction = 0 }},
		{"fraction above one", func(c *Config) { c.Risk.Fraction = 1.5 }},
		{"bad cadence", func(c *Config) { c.Polling.ConfirmEvery = "fast" }},
		{"negative lookback", func(c *Config) { c.Polling.Lookback = -1 }},
		{"bad journal type", func(c *Config) { c.Journal.Type = "parquet" }},
		{"sqlite without path", func(c *Config) { c.Journal.Type = "sqlite"; c.Journal.DBPath = "" }},
		{"bad session order", func(c *Config) { c.Session.TradingStart = c.Session.MarketOpen; c.Session.WatchOnlyStart.Hour = 10 }},
		{"stoch threshold out of range", func(c *Config) { c.Thresholds.StochMax = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Scanner.Underlying = "FINNIFTY"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FINNIFTY", loaded.Scanner.Underlying)
	assert.Equal(t, cfg.Indicators, loaded.Indicators)
}
