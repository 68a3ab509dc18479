// Package config loads and validates the collector's YAML configuration.
package config

import "time"

// Config is the root configuration for the collector binary.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Store    StoreConfig    `yaml:"store"`
	Market   MarketConfig   `yaml:"market"`
	Registry RegistryConfig `yaml:"registry"`
	Backfill BackfillConfig `yaml:"backfill"`
	Updater  UpdaterConfig  `yaml:"updater"`
	Poller   PollerConfig   `yaml:"poller"`
	History  HistoryConfig  `yaml:"history"`
	Health   HealthConfig   `yaml:"health"`
}

// APIConfig configures the brokerage chart client.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url" validate:"required,url"`
	AppKey       string        `yaml:"app_key" validate:"required"`
	AppSecret    string        `yaml:"app_secret" validate:"required"`
	Token        string        `yaml:"token" validate:"required"`
	MarketDiv    string        `yaml:"market_div" validate:"omitempty,oneof=J NX UN"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries" validate:"min=0"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// StoreConfig configures the Bar Store.
type StoreConfig struct {
	Dir          string `yaml:"dir"`
	MinDailyRows int    `yaml:"min_daily_rows" validate:"min=0"`
}

// MarketConfig configures session-hours resolution.
type MarketConfig struct {
	NXTSymbols []string `yaml:"nxt_symbols"`
}

// RegistryConfig configures the Working-Set Registry.
type RegistryConfig struct {
	Capacity    int `yaml:"capacity" validate:"min=0"`
	HistorySize int `yaml:"history_size" validate:"min=0"`
}

// BackfillConfig configures the Backfill Collector.
type BackfillConfig struct {
	DailyDays int `yaml:"daily_days" validate:"min=0"`
}

// UpdaterConfig configures the Incremental Updater.
type UpdaterConfig struct {
	MinBars       int           `yaml:"min_bars" validate:"min=0"`
	OpenSlack     time.Duration `yaml:"open_slack"`
	ReselectAfter time.Duration `yaml:"reselect_after"`
	EarlyWindow   time.Duration `yaml:"early_window"`
}

// PollerConfig configures the update poller.
type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency" validate:"min=0"`
	Timeout     time.Duration `yaml:"timeout"`
}

// HistoryConfig configures the optional PostgreSQL history recorder.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size" validate:"min=0"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"min=0,max=65535"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MinConns int    `yaml:"min_conns" validate:"min=0"`
	MaxConns int    `yaml:"max_conns" validate:"min=0"`
}

// HealthConfig configures the health endpoint.
type HealthConfig struct {
	Port int    `yaml:"port" validate:"min=0,max=65535"`
	Path string `yaml:"path"`
}
