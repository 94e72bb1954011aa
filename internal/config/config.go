package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rewired-gh/lottosmart/internal/generator"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Caixa     CaixaConfig     `mapstructure:"caixa"`
	History   HistoryConfig   `mapstructure:"history"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Checker   CheckerConfig   `mapstructure:"checker"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CaixaConfig holds the upstream lottery API configuration
type CaixaConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"` // per call, never retried
	UserAgent string        `mapstructure:"user_agent"`
}

// HistoryConfig bounds history assembly and the history endpoint
type HistoryConfig struct {
	StatsWindow  int `mapstructure:"stats_window"`
	MaxFetch     int `mapstructure:"max_fetch"`
	Workers      int `mapstructure:"workers"`
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// GeneratorConfig holds bet generation defaults
type GeneratorConfig struct {
	DefaultStrategy string `mapstructure:"default_strategy"`
	MaxCount        int    `mapstructure:"max_count"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// RedisConfig holds the statistics cache configuration
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	StatsTTL time.Duration `mapstructure:"stats_ttl"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// CheckerConfig controls the periodic check of unchecked bets
type CheckerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// LOTTOSMART_SERVER_ADDR overrides server.addr
	v.SetEnvPrefix("LOTTOSMART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8001")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("caixa.base_url", "https://servicebus2.caixa.gov.br/portaldeloterias/api")
	v.SetDefault("caixa.timeout", "30s")
	v.SetDefault("caixa.user_agent", "lottosmart/1.0")

	v.SetDefault("history.stats_window", 100)
	v.SetDefault("history.max_fetch", 50)
	v.SetDefault("history.workers", 4)
	v.SetDefault("history.default_limit", 20)
	v.SetDefault("history.max_limit", 100)

	v.SetDefault("generator.default_strategy", "balanced")
	v.SetDefault("generator.max_count", 10)

	v.SetDefault("storage.db_path", "./data/lottosmart.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.stats_ttl", "10m")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("checker.enabled", false)
	v.SetDefault("checker.interval", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Server
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Server.ShutdownTimeout < time.Second {
		return fmt.Errorf("server.shutdown_timeout must be at least 1 second")
	}

	// Caixa
	if u, err := url.Parse(c.Caixa.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("caixa.base_url must be an absolute URL")
	}
	if c.Caixa.Timeout < time.Second || c.Caixa.Timeout > 2*time.Minute {
		return fmt.Errorf("caixa.timeout must be between 1s and 2m")
	}

	// History
	if c.History.StatsWindow < 1 || c.History.StatsWindow > 500 {
		return fmt.Errorf("history.stats_window must be between 1 and 500")
	}
	if c.History.MaxFetch < 1 || c.History.MaxFetch > 50 {
		return fmt.Errorf("history.max_fetch must be between 1 and 50")
	}
	if c.History.Workers < 1 || c.History.Workers > 16 {
		return fmt.Errorf("history.workers must be between 1 and 16")
	}
	if c.History.MaxLimit < 1 {
		return fmt.Errorf("history.max_limit must be at least 1")
	}
	if c.History.DefaultLimit < 1 || c.History.DefaultLimit > c.History.MaxLimit {
		return fmt.Errorf("history.default_limit must be between 1 and history.max_limit")
	}

	// Generator
	if _, err := generator.ParseStrategy(c.Generator.DefaultStrategy); err != nil {
		return fmt.Errorf("generator.default_strategy must be one of %v: %w", generator.Strategies(), err)
	}
	if c.Generator.MaxCount < 1 || c.Generator.MaxCount > 50 {
		return fmt.Errorf("generator.max_count must be between 1 and 50")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required when redis is enabled")
		}
		if c.Redis.StatsTTL < time.Second {
			return fmt.Errorf("redis.stats_ttl must be at least 1 second")
		}
	}

	// Telegram
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Checker
	if c.Checker.Enabled && c.Checker.Interval < time.Minute {
		return fmt.Errorf("checker.interval must be at least 1 minute")
	}

	// Logging
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
