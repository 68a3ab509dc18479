package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL       = "https://openapi.koreainvestment.com:9443"
	DefaultMarketDiv     = "UN"
	DefaultAPITimeout    = 10 * time.Second
	DefaultMaxRetries    = 2
	DefaultRetryBackoff  = 500 * time.Millisecond
	DefaultStoreDir      = "data"
	DefaultMinDailyRows  = 50
	DefaultCapacity      = 30
	DefaultHistorySize   = 200
	DefaultDailyDays     = 30
	DefaultMinBars       = 5
	DefaultOpenSlack     = 5 * time.Minute
	DefaultReselectAfter = 5 * time.Minute
	DefaultEarlyWindow   = 15 * time.Minute
	DefaultPollInterval  = 30 * time.Second
	DefaultConcurrency   = 8
	DefaultPollTimeout   = 10 * time.Second
	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMinConns      = 2
	DefaultMaxConns      = 10
	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
	DefaultHealthPort    = 8080
	DefaultHealthPath    = "/healthz"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.MarketDiv == "" {
		c.API.MarketDiv = DefaultMarketDiv
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Store defaults
	if c.Store.Dir == "" {
		c.Store.Dir = DefaultStoreDir
	}
	if c.Store.MinDailyRows == 0 {
		c.Store.MinDailyRows = DefaultMinDailyRows
	}

	// Registry defaults
	if c.Registry.Capacity == 0 {
		c.Registry.Capacity = DefaultCapacity
	}
	if c.Registry.HistorySize == 0 {
		c.Registry.HistorySize = DefaultHistorySize
	}

	// Backfill defaults
	if c.Backfill.DailyDays == 0 {
		c.Backfill.DailyDays = DefaultDailyDays
	}

	// Updater defaults
	if c.Updater.MinBars == 0 {
		c.Updater.MinBars = DefaultMinBars
	}
	if c.Updater.OpenSlack == 0 {
		c.Updater.OpenSlack = DefaultOpenSlack
	}
	if c.Updater.ReselectAfter == 0 {
		c.Updater.ReselectAfter = DefaultReselectAfter
	}
	if c.Updater.EarlyWindow == 0 {
		c.Updater.EarlyWindow = DefaultEarlyWindow
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = DefaultConcurrency
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	// History defaults
	if c.History.BatchSize == 0 {
		c.History.BatchSize = DefaultBatchSize
	}
	if c.History.FlushInterval == 0 {
		c.History.FlushInterval = DefaultFlushInterval
	}
	applyDBDefaults(&c.History.Database)

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
