// Package config provides configuration management for the trendlab tools.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Exchange ExchangeConfig `mapstructure:"exchange" validate:"required"`
	Data     DataConfig     `mapstructure:"data" validate:"required"`
	Strategy StrategyConfig `mapstructure:"strategy" validate:"required"`
	Backtest BacktestConfig `mapstructure:"backtest" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// ExchangeConfig represents the market data source configuration
type ExchangeConfig struct {
	APIURL            string  `mapstructure:"api_url" validate:"required,url"`
	StreamURL         string  `mapstructure:"stream_url" validate:"required"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimitPerSec   float64 `mapstructure:"rate_limit_per_sec" validate:"required,gt=0"`
	CacheTTLSeconds   int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
}

// DataConfig represents the candle universe and on-disk layout
type DataConfig struct {
	Symbols      []string `mapstructure:"symbols" validate:"required,min=1"`
	Timeframe    string   `mapstructure:"timeframe" validate:"required"`
	Limit        int      `mapstructure:"limit" validate:"required,gt=0"`
	CSVDir       string   `mapstructure:"csv_dir" validate:"required"`
	SyncSchedule string   `mapstructure:"sync_schedule"`
}

// SpanPair is one fast/slow EWMA variation
type SpanPair struct {
	Fast int `mapstructure:"fast" validate:"required,gt=0"`
	Slow int `mapstructure:"slow" validate:"required,gt=0"`
}

// StrategyConfig represents the trading rule configuration
type StrategyConfig struct {
	Variations  []SpanPair `mapstructure:"variations" validate:"required,min=1,dive"`
	VolTarget   float64    `mapstructure:"vol_target" validate:"required,gt=0,lte=1"`
	VolLookback int        `mapstructure:"vol_lookback" validate:"required,gt=0"`
}

// BacktestConfig represents walk-forward configuration
type BacktestConfig struct {
	TrainWindow     int     `mapstructure:"train_window" validate:"required,gt=0"`
	TestWindow      int     `mapstructure:"test_window" validate:"required,gt=0"`
	Capital         float64 `mapstructure:"capital" validate:"required,gt=0"`
	TransactionCost float64 `mapstructure:"transaction_cost" validate:"gte=0,lte=0.1"`
	MaxParallel     int     `mapstructure:"max_parallel" validate:"gte=0"`
	OutputPath      string  `mapstructure:"output_path" validate:"required"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
