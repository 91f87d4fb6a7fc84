package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "munreg.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, `
addr: ":9000"
database_path: "/tmp/mun.db"
log_level: DEBUG
log_format: json
jwt_secret: "0123456789abcdef"
admin_emails: ["chair@example.com", " "]
allocator:
  max_attempts: 8
notifier:
  workers: 2
  timeout: 3s
mail:
  backend: redis
  redis_addr: "redis:6379"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.DatabasePath != "/tmp/mun.db" {
		t.Errorf("unexpected addr/db: %q %q", cfg.Addr, cfg.DatabasePath)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("expected normalized log settings, got %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if !reflect.DeepEqual(cfg.AdminEmails, []string{"chair@example.com"}) {
		t.Errorf("unexpected admin emails %v", cfg.AdminEmails)
	}
	if cfg.Allocator.MaxAttempts != 8 || cfg.Notifier.Workers != 2 || cfg.Notifier.Timeout != 3*time.Second {
		t.Errorf("unexpected tuning %+v %+v", cfg.Allocator, cfg.Notifier)
	}
	if cfg.Mail.Backend != MailBackendRedis || cfg.Mail.RedisAddr != "redis:6379" || cfg.Mail.RedisKey != "munreg:mail" {
		t.Errorf("unexpected mail config %+v", cfg.Mail)
	}
	// untouched keys keep defaults
	if cfg.JWTIssuer != "munreg" {
		t.Errorf("expected default issuer, got %q", cfg.JWTIssuer)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "addr: \":9000\"\nnotifier:\n  workers: 2\n")
	t.Setenv("MUNREG_ADDR", ":7000")
	t.Setenv("MUNREG_JWT_SECRET", "from-the-environment")
	t.Setenv("MUNREG_ADMIN_EMAILS", "a@example.com,b@example.com")
	t.Setenv("MUNREG_ALLOCATOR_MAX_ATTEMPTS", "9")
	t.Setenv("MUNREG_NOTIFIER_TIMEOUT", "250ms")
	t.Setenv("MUNREG_MAIL_REDIS_KEY", "other:key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("expected env addr, got %q", cfg.Addr)
	}
	if cfg.Notifier.Workers != 2 {
		t.Errorf("expected file workers, got %d", cfg.Notifier.Workers)
	}
	if cfg.JWTSecret != "from-the-environment" {
		t.Errorf("expected env secret, got %q", cfg.JWTSecret)
	}
	if !reflect.DeepEqual(cfg.AdminEmails, []string{"a@example.com", "b@example.com"}) {
		t.Errorf("unexpected admin emails %v", cfg.AdminEmails)
	}
	if cfg.Allocator.MaxAttempts != 9 || cfg.Notifier.Timeout != 250*time.Millisecond {
		t.Errorf("unexpected tuning %+v %+v", cfg.Allocator, cfg.Notifier)
	}
	if cfg.Mail.RedisKey != "other:key" {
		t.Errorf("expected env redis key, got %q", cfg.Mail.RedisKey)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "addr: [unclosed")); err == nil {
		t.Error("expected error for malformed yaml")
	}

	t.Setenv("MUNREG_ALLOCATOR_MAX_ATTEMPTS", "many")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric env value")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }, "addr"},
		{"empty database", func(c *Config) { c.DatabasePath = "" }, "database_path"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"zero attempts", func(c *Config) { c.Allocator.MaxAttempts = 0 }, "max_attempts"},
		{"too many workers", func(c *Config) { c.Notifier.Workers = 1000 }, "workers"},
		{"zero timeout", func(c *Config) { c.Notifier.Timeout = 0 }, "timeout"},
		{"unknown backend", func(c *Config) { c.Mail.Backend = "smtp" }, "mail.backend"},
		{"redis without addr", func(c *Config) { c.Mail.Backend = MailBackendRedis; c.Mail.RedisAddr = "" }, "redis_addr"},
		{"redis without key", func(c *Config) { c.Mail.Backend = MailBackendRedis; c.Mail.RedisKey = "" }, "redis_key"},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRequireJWTSecret(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireJWTSecret(); err == nil {
		t.Error("expected error for empty secret")
	}
	cfg.JWTSecret = "short"
	if err := cfg.RequireJWTSecret(); err == nil {
		t.Error("expected error for short secret")
	}
	cfg.JWTSecret = "0123456789abcdef"
	if err := cfg.RequireJWTSecret(); err != nil {
		t.Errorf("expected valid secret, got %v", err)
	}
}
