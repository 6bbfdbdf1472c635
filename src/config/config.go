package config

import (
	"fmt"
	"os"

	"stock-simulator/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills optional sections with the simulator's stock defaults.
func (c *Config) applyDefaults() {
	if c.MarketData.BaseURL == "" {
		c.MarketData.BaseURL = "https://www.alphavantage.co/query"
	}
	if c.MarketData.QuoteCacheSeconds == 0 {
		c.MarketData.QuoteCacheSeconds = 300
	}
	if c.MarketData.CallDelayMillis == 0 {
		c.MarketData.CallDelayMillis = 1000
	}
	if c.MarketData.CallTimeoutSeconds == 0 {
		c.MarketData.CallTimeoutSeconds = 5
	}
	if c.MarketData.ExchangeRate == 0 {
		c.MarketData.ExchangeRate = 1300 // USD to KRW
	}
	if env := os.Getenv("ALPHA_VANTAGE_API_KEY"); env != "" {
		c.MarketData.APIKey = env
	}

	if c.News.RefreshSeconds == 0 {
		c.News.RefreshSeconds = 600
	}
	if c.News.NewItemChance == 0 {
		c.News.NewItemChance = 0.3
	}
	if c.News.MaxImpact == 0 {
		c.News.MaxImpact = 0.3
	}
	if c.News.MaxItems == 0 {
		c.News.MaxItems = 20
	}
	if c.News.WindowHours == 0 {
		c.News.WindowHours = 24
	}
	if c.News.ImpactClamp == 0 {
		c.News.ImpactClamp = 0.05
	}

	if c.Updater.IntervalSeconds == 0 {
		c.Updater.IntervalSeconds = 300
	}
	if c.Updater.MaxChangePercent == 0 {
		c.Updater.MaxChangePercent = 3
	}
	if c.Updater.ConcurrentUpdates == 0 {
		c.Updater.ConcurrentUpdates = 4
	}

	if c.Cache.DefaultTTLSeconds == 0 {
		c.Cache.DefaultTTLSeconds = 300
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 1000
	}
	if c.Cache.MaxMemoryBytes == 0 {
		c.Cache.MaxMemoryBytes = 64 << 20 // 64MB
	}

	if c.Seed.InitialBalance == "" {
		c.Seed.InitialBalance = "10000000.00"
	}
	if c.Seed.HistoryDays == 0 {
		c.Seed.HistoryDays = 30
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "memory":
		// no backing file required
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "":
		return fmt.Errorf("database type cannot be empty")
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Updater configuration
	if c.Updater.IntervalSeconds <= 0 {
		return fmt.Errorf("update interval must be greater than 0")
	}
	if c.Updater.MaxChangePercent <= 0 {
		return fmt.Errorf("max change percent must be greater than 0")
	}
	if c.Updater.ConcurrentUpdates <= 0 {
		return fmt.Errorf("concurrent updates must be greater than 0")
	}

	// Validate News configuration
	if c.News.NewItemChance < 0 || c.News.NewItemChance > 1 {
		return fmt.Errorf("news new item chance must be in [0, 1]")
	}
	if c.News.ImpactClamp <= 0 {
		return fmt.Errorf("news impact clamp must be greater than 0")
	}

	// Validate Cache configuration
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache max size must be greater than 0")
	}
	if c.Cache.MaxMemoryBytes <= 0 {
		return fmt.Errorf("cache memory budget must be greater than 0")
	}

	// Validate Seed configuration
	for i, s := range c.Seed.Stocks {
		if s.Symbol == "" {
			return fmt.Errorf("seed stock %d must have a symbol", i)
		}
		if s.CurrentPrice == "" {
			return fmt.Errorf("seed stock '%s' must have a current price", s.Symbol)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
