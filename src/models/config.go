package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	MarketData MMarketDataConfig `yaml:"market_data"`
	News       MNewsConfig       `yaml:"news"`
	Updater    MUpdaterConfig    `yaml:"updater"`
	Cache      MCacheConfig      `yaml:"cache"`
	Seed       MSeedConfig       `yaml:"seed"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // memory | sqlite | postgres
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"`
	MaxRetries     int      `yaml:"retries"`
	UserAgent      string   `yaml:"user_agent"`
}

type MMarketDataConfig struct {
	APIKey             string            `yaml:"api_key"`
	BaseURL            string            `yaml:"base_url"`
	QuoteCacheSeconds  int               `yaml:"quote_cache_seconds"`
	CallDelayMillis    int               `yaml:"call_delay_millis"`
	CallTimeoutSeconds int               `yaml:"call_timeout_seconds"`
	ExchangeRate       float64           `yaml:"exchange_rate"`
	SymbolMap          map[string]string `yaml:"symbol_map"`
	RespectMarketHours bool              `yaml:"respect_market_hours"`
}

type MNewsConfig struct {
	RefreshSeconds int     `yaml:"refresh_seconds"`
	NewItemChance  float64 `yaml:"new_item_chance"`
	MaxImpact      float64 `yaml:"max_impact"`
	MaxItems       int     `yaml:"max_items"`
	WindowHours    int     `yaml:"window_hours"`
	ImpactClamp    float64 `yaml:"impact_clamp"`
}

type MUpdaterConfig struct {
	IntervalSeconds   int     `yaml:"interval_seconds"`
	MaxChangePercent  float64 `yaml:"max_change_percent"`
	ConcurrentUpdates int     `yaml:"concurrent_updates"`
}

type MCacheConfig struct {
	DefaultTTLSeconds int   `yaml:"default_ttl_seconds"`
	MaxSize           int   `yaml:"max_size"`
	MaxMemoryBytes    int64 `yaml:"max_memory_bytes"`
}

type MSeedConfig struct {
	Username       string       `yaml:"username"`
	Password       string       `yaml:"password"`
	InitialBalance string       `yaml:"initial_balance"`
	HistoryDays    int          `yaml:"history_days"`
	Stocks         []MSeedStock `yaml:"stocks"`
}

type MSeedStock struct {
	Symbol        string `yaml:"symbol"`
	Name          string `yaml:"name"`
	CurrentPrice  string `yaml:"current_price"`
	PreviousClose string `yaml:"previous_close"`
}
