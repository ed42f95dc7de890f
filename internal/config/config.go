// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Vendor        VendorConfig        `yaml:"vendor"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Assist        AssistConfig        `yaml:"assist"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Retention     RetentionConfig     `yaml:"retention"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings. Run history is
// disabled when Host is empty.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// Enabled reports whether a database is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode, d.PoolSize,
	)
}

// VendorConfig defines the pricing API settings.
type VendorConfig struct {
	BaseURL     string          `yaml:"base_url"`
	WebsiteCode string          `yaml:"website_code"`
	AuthHeader  string          `yaml:"auth_header"`
	UserAgent   string          `yaml:"user_agent"`
	Referer     string          `yaml:"referer"`
	Timeout     time.Duration   `yaml:"timeout"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines pricing API rate limiting settings. A zero
// PerSecond means no per-second ceiling; a zero DailyLimit means no budget.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// ExtractionConfig defines job loop and export settings.
type ExtractionConfig struct {
	RequestDelay     time.Duration `yaml:"request_delay"`
	ProgressEvery    int           `yaml:"progress_every"`
	MaxAttempts      int           `yaml:"max_attempts"`
	RetryPause       time.Duration `yaml:"retry_pause"`
	SuspiciousPrice  string        `yaml:"suspicious_price"`
	OutputDir        string        `yaml:"output_dir"`
	SubscriberBuffer int           `yaml:"subscriber_buffer"`
}

// AssistConfig defines the optional AI mapping assistant.
type AssistConfig struct {
	Enabled     bool             `yaml:"enabled"`
	CacheSize   int              `yaml:"cache_size"`
	Timeout     time.Duration    `yaml:"timeout"`
	MaxAttempts int              `yaml:"max_attempts"`
	RetryPause  time.Duration    `yaml:"retry_pause"`
	Providers   []ProviderConfig `yaml:"providers"`
}

// ProviderConfig defines one AI provider in the ring.
type ProviderConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // anthropic, openai_compat, gemini
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// RetentionConfig defines pruning of old runs and their output directories.
type RetentionConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Interval     time.Duration `yaml:"interval"`
	MaxAge       time.Duration `yaml:"max_age"`
	PruneOutputs bool          `yaml:"prune_outputs"`
}

// TracingConfig defines OpenTelemetry trace export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML config content, performing environment variable
// substitution and validation.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied and no
// database, for the local runner when no config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyVendorDefaults(&cfg.Vendor)
	applyExtractionDefaults(&cfg.Extraction)
	applyAssistDefaults(&cfg.Assist)
	applyRetentionDefaults(&cfg.Retention)
	applyTracingDefaults(&cfg.Tracing)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyVendorDefaults(v *VendorConfig) {
	if v.BaseURL == "" {
		v.BaseURL = "https://calculator.uprinting.com/v1"
	}
	if v.WebsiteCode == "" {
		v.WebsiteCode = "UP"
	}
	if v.Referer == "" {
		v.Referer = "https://www.uprinting.com/"
	}
	if v.Timeout == 0 {
		v.Timeout = 15 * time.Second
	}
	if v.RateLimit.Burst == 0 {
		v.RateLimit.Burst = 1
	}
}

func applyExtractionDefaults(e *ExtractionConfig) {
	if e.RequestDelay == 0 {
		e.RequestDelay = 20 * time.Millisecond
	}
	if e.ProgressEvery == 0 {
		e.ProgressEvery = 25
	}
	if e.MaxAttempts == 0 {
		e.MaxAttempts = 3
	}
	if e.RetryPause == 0 {
		e.RetryPause = time.Second
	}
	if e.SuspiciousPrice == "" {
		e.SuspiciousPrice = "20"
	}
	if e.OutputDir == "" {
		e.OutputDir = "./output"
	}
	if e.SubscriberBuffer == 0 {
		e.SubscriberBuffer = 64
	}
}

func applyAssistDefaults(a *AssistConfig) {
	if a.CacheSize == 0 {
		a.CacheSize = 256
	}
	if a.Timeout == 0 {
		a.Timeout = 30 * time.Second
	}
	if a.MaxAttempts == 0 {
		a.MaxAttempts = 2
	}
	if a.RetryPause == 0 {
		a.RetryPause = time.Second
	}
	for i := range a.Providers {
		if a.Providers[i].Name == "" {
			a.Providers[i].Name = a.Providers[i].Kind
		}
	}
}

func applyRetentionDefaults(r *RetentionConfig) {
	if r.Interval == 0 {
		r.Interval = 24 * time.Hour
	}
	if r.MaxAge == 0 {
		r.MaxAge = 30 * 24 * time.Hour
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "price-matrix"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Enabled() {
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when database.host is set"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when database.host is set"))
		}
	}

	if u, err := url.Parse(cfg.Vendor.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("vendor.base_url must be an absolute URL (got %q)", cfg.Vendor.BaseURL))
	}
	if cfg.Vendor.RateLimit.PerSecond < 0 {
		errs = append(errs, fmt.Errorf("vendor.rate_limit.per_second must not be negative"))
	}
	if cfg.Vendor.RateLimit.DailyLimit < 0 {
		errs = append(errs, fmt.Errorf("vendor.rate_limit.daily_limit must not be negative"))
	}

	if cfg.Extraction.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("extraction.max_attempts must be at least 1"))
	}
	if cfg.Extraction.ProgressEvery < 1 {
		errs = append(errs, fmt.Errorf("extraction.progress_every must be at least 1"))
	}
	if cfg.Extraction.RequestDelay < 0 {
		errs = append(errs, fmt.Errorf("extraction.request_delay must not be negative"))
	}

	errs = append(errs, validateAssist(&cfg.Assist)...)

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"))
	}

	if cfg.Retention.Enabled && !cfg.Database.Enabled() {
		errs = append(errs, fmt.Errorf("retention requires database.host"))
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, fmt.Errorf("tracing.endpoint is required when tracing is enabled"))
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be between 0 and 1"))
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of: text, json (got %q)", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateAssist(a *AssistConfig) []error {
	if !a.Enabled {
		return nil
	}

	var errs []error
	if len(a.Providers) == 0 {
		errs = append(errs, fmt.Errorf("assist.providers must list at least one provider when assist is enabled"))
	}

	for i, p := range a.Providers {
		switch p.Kind {
		case "anthropic", "gemini":
		case "openai_compat":
			if p.Endpoint == "" {
				errs = append(errs, fmt.Errorf("assist.providers[%d].endpoint is required for openai_compat", i))
			}
		default:
			errs = append(errs, fmt.Errorf(
				"assist.providers[%d].kind must be one of: anthropic, openai_compat, gemini (got %q)",
				i, p.Kind,
			))
		}
		if p.Model == "" {
			errs = append(errs, fmt.Errorf("assist.providers[%d].model is required", i))
		}
	}
	return errs
}
