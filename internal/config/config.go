// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the SMTP dispatch server.
package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mqln/mcp-server-smtp/internal/relay"
)

// Defaults for bulk dispatch pacing.
const (
	DefaultBatchSize = 10
	DefaultDelayMs   = 1000
)

// Config holds the complete application configuration.
type Config struct {
	Server    ServerConfig        `yaml:"server"`
	Relays    []relay.Config      `yaml:"relays"`
	Templates map[string]Template `yaml:"templates"`
	Audit     AuditConfig         `yaml:"audit"`
	Bulk      BulkConfig          `yaml:"bulk"`
	TLS       TLSConfig           `yaml:"tls"`
	Logging   LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	APIKey string `yaml:"api_key"`
}

// Template is a named subject/body pattern with variable substitution.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// AuditConfig holds the delivery audit log location.
type AuditConfig struct {
	Dir string `yaml:"dir"`
}

// BulkConfig holds defaults for bulk dispatch batching and pacing.
type BulkConfig struct {
	BatchSize int `yaml:"batch_size"`
	DelayMs   int `yaml:"delay_ms"`
}

// TLSConfig holds TLS certificate file paths for the HTTPS API.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Server.Listen = ":8025"
	c.Audit.Dir = "./data/logs"
	c.Bulk.BatchSize = DefaultBatchSize
	c.Bulk.DelayMs = DefaultDelayMs
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("SERVER_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("SERVER_API_KEY"); v != "" {
		c.Server.APIKey = v
	}

	if v := os.Getenv("SMTP_RELAYS"); v != "" {
		relays, err := DecodeRelays(v)
		if err != nil {
			return err
		}
		c.Relays = relays
	}

	if v := os.Getenv("AUDIT_LOG_DIR"); v != "" {
		c.Audit.Dir = v
	}

	if v := os.Getenv("BULK_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			c.Bulk.BatchSize = n
		}
	}
	if v := os.Getenv("BULK_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Bulk.DelayMs = n
		}
	}

	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		c.TLS.CertFile = v
		c.TLS.Enabled = true
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		c.TLS.KeyFile = v
		c.TLS.Enabled = true
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	return nil
}

// DecodeRelays decodes the SMTP_RELAYS environment value into a relay
// config list. The value is a JSON array, optionally base64-encoded so it
// survives shells and process managers that mangle quotes.
func DecodeRelays(value string) ([]relay.Config, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return nil, fmt.Errorf("%w: SMTP_RELAYS is empty", relay.ErrInvalidConfig)
	}

	if !strings.HasPrefix(raw, "[") {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: SMTP_RELAYS is neither a JSON array nor base64: %v", relay.ErrInvalidConfig, err)
		}
		raw = strings.TrimSpace(string(decoded))
	}

	var relays []relay.Config
	if err := json.Unmarshal([]byte(raw), &relays); err != nil {
		return nil, fmt.Errorf("%w: SMTP_RELAYS is not a JSON array of relay configs: %v", relay.ErrInvalidConfig, err)
	}
	if len(relays) == 0 {
		return nil, fmt.Errorf("%w: SMTP_RELAYS contains no entries", relay.ErrInvalidConfig)
	}
	return relays, nil
}
