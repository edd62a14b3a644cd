package config

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mqln/mcp-server-smtp/internal/relay"
)

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"SERVER_LISTEN", "SERVER_API_KEY", "SMTP_RELAYS",
		"AUDIT_LOG_DIR", "BULK_BATCH_SIZE", "BULK_DELAY_MS",
		"TLS_CERT_FILE", "TLS_KEY_FILE", "LOG_LEVEL",
	}
	for _, env := range envVars {
		t.Setenv(env, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Listen != ":8025" {
		t.Errorf("Server.Listen: got %q, want %q", cfg.Server.Listen, ":8025")
	}
	if cfg.Server.APIKey != "" {
		t.Errorf("Server.APIKey: got %q, want empty", cfg.Server.APIKey)
	}
	if cfg.Audit.Dir != "./data/logs" {
		t.Errorf("Audit.Dir: got %q, want %q", cfg.Audit.Dir, "./data/logs")
	}
	if cfg.Bulk.BatchSize != 10 {
		t.Errorf("Bulk.BatchSize: got %d, want 10", cfg.Bulk.BatchSize)
	}
	if cfg.Bulk.DelayMs != 1000 {
		t.Errorf("Bulk.DelayMs: got %d, want 1000", cfg.Bulk.DelayMs)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if len(cfg.Relays) != 0 {
		t.Errorf("Relays: got %d entries, want none", len(cfg.Relays))
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_LISTEN", ":9025")
	t.Setenv("SERVER_API_KEY", "secret123")
	t.Setenv("SMTP_RELAYS", `[{"id":"main","host":"mail.example.com","port":465,"secure":true,"username":"u","password":"p","isDefault":true}]`)
	t.Setenv("AUDIT_LOG_DIR", "/var/log/dispatch")
	t.Setenv("BULK_BATCH_SIZE", "25")
	t.Setenv("BULK_DELAY_MS", "0")
	t.Setenv("TLS_CERT_FILE", "/certs/cert.pem")
	t.Setenv("TLS_KEY_FILE", "/certs/key.pem")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Listen != ":9025" {
		t.Errorf("Server.Listen: got %q, want %q", cfg.Server.Listen, ":9025")
	}
	if cfg.Server.APIKey != "secret123" {
		t.Errorf("Server.APIKey: got %q, want %q", cfg.Server.APIKey, "secret123")
	}
	if len(cfg.Relays) != 1 {
		t.Fatalf("Relays: got %d entries, want 1", len(cfg.Relays))
	}
	if cfg.Relays[0].ID != "main" || cfg.Relays[0].Host != "mail.example.com" || cfg.Relays[0].Port != 465 {
		t.Errorf("Relays[0]: got %+v", cfg.Relays[0])
	}
	if !cfg.Relays[0].Secure || !cfg.Relays[0].IsDefault {
		t.Errorf("Relays[0] flags: got %+v", cfg.Relays[0])
	}
	if cfg.Audit.Dir != "/var/log/dispatch" {
		t.Errorf("Audit.Dir: got %q", cfg.Audit.Dir)
	}
	if cfg.Bulk.BatchSize != 25 {
		t.Errorf("Bulk.BatchSize: got %d, want 25", cfg.Bulk.BatchSize)
	}
	if cfg.Bulk.DelayMs != 0 {
		t.Errorf("Bulk.DelayMs: got %d, want 0", cfg.Bulk.DelayMs)
	}
	if !cfg.TLS.Enabled {
		t.Error("TLS.Enabled: got false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_InvalidRelaysEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMTP_RELAYS", "{not an array}")

	_, err := Load()
	if !errors.Is(err, relay.ErrInvalidConfig) {
		t.Fatalf("expected relay.ErrInvalidConfig, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  listen: ":7025"
relays:
  - id: main
    host: mail.example.com
    port: 587
    username: user
    password: pass
    is_default: true
templates:
  welcome:
    subject: "Welcome {{.name}}"
    body: "Hello {{.name}}!"
bulk:
  batch_size: 5
  delay_ms: 200
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Listen != ":7025" {
		t.Errorf("Server.Listen: got %q, want %q", cfg.Server.Listen, ":7025")
	}
	if len(cfg.Relays) != 1 || cfg.Relays[0].ID != "main" {
		t.Fatalf("Relays: got %+v", cfg.Relays)
	}
	if !cfg.Relays[0].IsDefault {
		t.Error("Relays[0].IsDefault: got false, want true")
	}
	if tmpl, ok := cfg.Templates["welcome"]; !ok || tmpl.Subject != "Welcome {{.name}}" {
		t.Errorf("Templates[welcome]: got %+v", cfg.Templates)
	}
	if cfg.Bulk.BatchSize != 5 || cfg.Bulk.DelayMs != 200 {
		t.Errorf("Bulk: got %+v", cfg.Bulk)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "warn")
	}
}

func TestLoadFromFile_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_LISTEN", ":6025")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listen: \":7025\"\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Listen != ":6025" {
		t.Errorf("Server.Listen: got %q, want env override %q", cfg.Server.Listen, ":6025")
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	clearEnv(t)

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDecodeRelays_JSON(t *testing.T) {
	relays, err := DecodeRelays(`[{"id":"a","host":"h1"},{"id":"b","host":"h2"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(relays) != 2 || relays[0].ID != "a" || relays[1].ID != "b" {
		t.Errorf("got %+v", relays)
	}
}

func TestDecodeRelays_Base64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`[{"id":"a","host":"h1"}]`))

	relays, err := DecodeRelays(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(relays) != 1 || relays[0].ID != "a" {
		t.Errorf("got %+v", relays)
	}
}

func TestDecodeRelays_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not json or base64", "!!!"},
		{"json object", base64.StdEncoding.EncodeToString([]byte(`{"id":"a"}`))},
		{"empty array", "[]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeRelays(tc.value); !errors.Is(err, relay.ErrInvalidConfig) {
				t.Fatalf("expected relay.ErrInvalidConfig, got %v", err)
			}
		})
	}
}
