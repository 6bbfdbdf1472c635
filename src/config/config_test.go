package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

const minimalYAML = `
name: "StockSimulator"
host: "127.0.0.1"
port: 8000
log_level: "INFO"
storage:
  db_type: "memory"
network:
  enabled: true
  timeout: 10
  retries: 3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Updater.IntervalSeconds)
	assert.Equal(t, float64(3), cfg.Updater.MaxChangePercent)
	assert.Equal(t, 300, cfg.Cache.DefaultTTLSeconds)
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.Equal(t, int64(64<<20), cfg.Cache.MaxMemoryBytes)
	assert.Equal(t, float64(1300), cfg.MarketData.ExchangeRate)
	assert.Equal(t, "https://www.alphavantage.co/query", cfg.MarketData.BaseURL)
	assert.Equal(t, 0.3, cfg.News.NewItemChance)
	assert.Equal(t, 0.05, cfg.News.ImpactClamp)
	assert.Equal(t, "10000000.00", cfg.Seed.InitialBalance)
}

// -----------------------------------------------------------------------------

func TestAPIKeyEnvOverride(t *testing.T) {
	t.Setenv("ALPHA_VANTAGE_API_KEY", "env-key")

	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.MarketData.APIKey)
}

// -----------------------------------------------------------------------------

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		mutate func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"privileged port", func(c *Config) { c.Port = 80 }},
		{"unknown db type", func(c *Config) { c.Storage.DBType = "oracle" }},
		{"sqlite without path", func(c *Config) { c.Storage.DBType = "sqlite"; c.Storage.DBPath = "" }},
		{"postgres without conn string", func(c *Config) { c.Storage.DBType = "postgres"; c.Storage.DBConnectionString = "" }},
		{"zero interval", func(c *Config) { c.Updater.IntervalSeconds = 0 }},
		{"chance above one", func(c *Config) { c.News.NewItemChance = 1.5 }},
		{"zero cache size", func(c *Config) { c.Cache.MaxSize = 0 }},
		{"seed stock without symbol", func(c *Config) {
			c.Seed.Stocks[0].Symbol = ""
		}},
	}

	for _, tc := range cases {
		cfg, err := NewConfig(writeConfig(t, minimalYAML+`
seed:
  stocks:
    - symbol: "AAPL"
      name: "Apple"
      current_price: "175000.00"
      previous_close: "173500.00"
`))
		require.NoError(t, err, tc.name)

		tc.mutate(cfg)
		assert.Error(t, cfg.Validate(), tc.name)
	}
}

// -----------------------------------------------------------------------------

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	reloaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, reloaded.Name)
	assert.Equal(t, cfg.Updater.IntervalSeconds, reloaded.Updater.IntervalSeconds)
}

// -----------------------------------------------------------------------------

func TestMissingFileFails(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
