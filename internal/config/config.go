package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Intercom  IntercomConfig  `yaml:"intercom"`
	Calendly  CalendlyConfig  `yaml:"calendly"`
	Smartlead SmartleadConfig `yaml:"smartlead"`
	Airtable  AirtableConfig  `yaml:"airtable"`
	Fathom    FathomConfig    `yaml:"fathom"`
	Slack     SlackConfig     `yaml:"slack"`
	Sync      SyncConfig      `yaml:"sync"`
	Alerts    AlertConfig     `yaml:"alerts"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection used for sync-run locking
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// IntercomConfig holds support platform API configuration
type IntercomConfig struct {
	AccessToken    string `yaml:"access_token"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c IntercomConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CalendlyConfig holds scheduling platform API configuration
type CalendlyConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
	LookbackDays   int    `yaml:"lookback_days"`
}

// Timeout returns the configured timeout as a duration
func (c CalendlyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SmartleadConfig holds campaign platform API configuration
type SmartleadConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c SmartleadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AirtableConfig holds directory base configuration
type AirtableConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseID         string `yaml:"base_id"`
	CustomersTable string `yaml:"customers_table"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c AirtableConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FathomConfig holds call recording platform API configuration
type FathomConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
	LookbackDays   int    `yaml:"lookback_days"`
}

// Timeout returns the configured timeout as a duration
func (c FathomConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SlackConfig holds alert delivery configuration
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
	Enabled    bool   `yaml:"enabled"`
}

// SyncConfig holds batch sync behavior settings
type SyncConfig struct {
	// InternalDomains lists the operator's own email domains; invitees
	// and attendees from these are skipped during scheduling and call
	// passes.
	InternalDomains []string `yaml:"internal_domains"`
	LockTTLSeconds  int      `yaml:"lock_ttl_seconds"`
}

// LockTTL returns the sync-run lock TTL as a duration
func (c SyncConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// IsInternalDomain reports whether the email belongs to one of the
// operator's own domains.
func (c SyncConfig) IsInternalDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range c.InternalDomains {
		if domain == strings.ToLower(d) {
			return true
		}
	}
	return false
}

// AlertConfig holds alert thresholds
type AlertConfig struct {
	HealthDropThreshold float64 `yaml:"health_drop_threshold"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Intercom.BaseURL == "" {
		cfg.Intercom.BaseURL = "https://api.intercom.io"
	}
	if cfg.Intercom.TimeoutSeconds == 0 {
		cfg.Intercom.TimeoutSeconds = 30
	}
	if cfg.Calendly.BaseURL == "" {
		cfg.Calendly.BaseURL = "https://api.calendly.com"
	}
	if cfg.Calendly.TimeoutSeconds == 0 {
		cfg.Calendly.TimeoutSeconds = 30
	}
	if cfg.Calendly.LookbackDays == 0 {
		cfg.Calendly.LookbackDays = 90
	}
	if cfg.Smartlead.BaseURL == "" {
		cfg.Smartlead.BaseURL = "https://server.smartlead.ai/api/v1"
	}
	if cfg.Smartlead.TimeoutSeconds == 0 {
		cfg.Smartlead.TimeoutSeconds = 30
	}
	if cfg.Airtable.CustomersTable == "" {
		cfg.Airtable.CustomersTable = "Customers"
	}
	if cfg.Airtable.TimeoutSeconds == 0 {
		cfg.Airtable.TimeoutSeconds = 30
	}
	if cfg.Fathom.BaseURL == "" {
		cfg.Fathom.BaseURL = "https://api.fathom.ai/external/v1"
	}
	if cfg.Fathom.TimeoutSeconds == 0 {
		cfg.Fathom.TimeoutSeconds = 30
	}
	if cfg.Fathom.LookbackDays == 0 {
		cfg.Fathom.LookbackDays = 90
	}
	if cfg.Sync.LockTTLSeconds == 0 {
		cfg.Sync.LockTTLSeconds = 1800
	}
	if cfg.Alerts.HealthDropThreshold == 0 {
		cfg.Alerts.HealthDropThreshold = 20
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("INTERCOM_ACCESS_TOKEN"); v != "" {
		cfg.Intercom.AccessToken = v
		cfg.Intercom.Enabled = true
	}
	if v := os.Getenv("CALENDLY_API_KEY"); v != "" {
		cfg.Calendly.APIKey = v
		cfg.Calendly.Enabled = true
	}
	if v := os.Getenv("SMARTLEAD_API_KEY"); v != "" {
		cfg.Smartlead.APIKey = v
		cfg.Smartlead.Enabled = true
	}
	if v := os.Getenv("AIRTABLE_API_KEY"); v != "" {
		cfg.Airtable.APIKey = v
		cfg.Airtable.Enabled = true
	}
	if v := os.Getenv("AIRTABLE_BASE_ID"); v != "" {
		cfg.Airtable.BaseID = v
	}
	if v := os.Getenv("FATHOM_API_KEY"); v != "" {
		cfg.Fathom.APIKey = v
		cfg.Fathom.Enabled = true
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Slack.WebhookURL = v
		cfg.Slack.Enabled = true
	}
	if v := os.Getenv("SLACK_CHANNEL"); v != "" {
		cfg.Slack.Channel = v
	}

	return cfg, nil
}
