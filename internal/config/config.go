// Package config loads and validates console configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CONSOLE_SERVICE_BASE_URL.
const EnvPrefix = "CONSOLE"

// Config captures all console configuration knobs loaded via Viper.
type Config struct {
	Service       ServiceConfig       `mapstructure:"service"`
	Roster        RosterConfig        `mapstructure:"roster"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Results       ResultsConfig       `mapstructure:"results"`
	Export        ExportConfig        `mapstructure:"export"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Stub          StubConfig          `mapstructure:"stub"`
}

// ServiceConfig points the gateway at the crawl service.
type ServiceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// RosterConfig controls polling.
type RosterConfig struct {
	IntervalMs         int  `mapstructure:"interval_ms"`
	NotifyEveryFailure bool `mapstructure:"notify_every_failure"`
}

// NotificationsConfig controls notice expiry.
type NotificationsConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// ResultsConfig sets the explorer defaults.
type ResultsConfig struct {
	SummaryCount int `mapstructure:"summary_count"`
	PageSize     int `mapstructure:"page_size"`
}

// ExportConfig sets where exported specs are written.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig toggles zap development features and the log destination.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// MetricsConfig enables a Prometheus listener for the console. An empty
// address disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// StubConfig controls the in-memory stand-in service.
type StubConfig struct {
	Port     int    `mapstructure:"port"`
	BasePath string `mapstructure:"base_path"`
	Records  string `mapstructure:"records"`
}

// Load builds a Config from .env files, an optional config file, and the
// environment.
func Load(path string) (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadEnvFiles loads ENV_FILE when set, else .env.local then .env. Missing
// files are ignored and existing variables are never overwritten.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("service.timeout_seconds", 15)
	v.SetDefault("roster.interval_ms", 1000)
	v.SetDefault("roster.notify_every_failure", false)
	v.SetDefault("notifications.ttl_seconds", 5)
	v.SetDefault("results.summary_count", 100)
	v.SetDefault("results.page_size", 10)
	v.SetDefault("export.dir", ".")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("stub.port", 8000)
	v.SetDefault("stub.base_path", "/api/v1")
	v.SetDefault("stub.records", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Service.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("service.base_url must be an absolute URL, got %q", c.Service.BaseURL)
	}
	if c.Service.TimeoutSeconds <= 0 {
		return errors.New("service.timeout_seconds must be > 0")
	}
	if c.Roster.IntervalMs <= 0 {
		return errors.New("roster.interval_ms must be > 0")
	}
	if c.Notifications.TTLSeconds <= 0 {
		return errors.New("notifications.ttl_seconds must be > 0")
	}
	if c.Results.SummaryCount <= 0 {
		return errors.New("results.summary_count must be > 0")
	}
	if c.Results.PageSize <= 0 {
		return errors.New("results.page_size must be > 0")
	}
	if c.Export.Dir == "" {
		return errors.New("export.dir must be set")
	}
	if c.Stub.Port <= 0 {
		return errors.New("stub.port must be > 0")
	}
	if !strings.HasPrefix(c.Stub.BasePath, "/") {
		return fmt.Errorf("stub.base_path must start with /, got %q", c.Stub.BasePath)
	}
	return nil
}

// ServiceTimeout returns the per-call gateway timeout.
func (c Config) ServiceTimeout() time.Duration {
	return time.Duration(c.Service.TimeoutSeconds) * time.Second
}

// PollInterval returns the roster poll cadence.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Roster.IntervalMs) * time.Millisecond
}

// NoticeTTL returns how long notices stay visible.
func (c Config) NoticeTTL() time.Duration {
	return time.Duration(c.Notifications.TTLSeconds) * time.Second
}
