package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. MUNREG_ADDR
const EnvPrefix = "munreg"

// Mail backends
const (
	MailBackendSQLite = "sqlite"
	MailBackendRedis  = "redis"
)

// Config is the application configuration
type Config struct {
	Addr           string   `yaml:"addr"            split_words:"true"`
	DatabasePath   string   `yaml:"database_path"   split_words:"true"`
	LogLevel       string   `yaml:"log_level"       split_words:"true"`
	LogFormat      string   `yaml:"log_format"      split_words:"true"`
	JWTSecret      string   `yaml:"jwt_secret"      envconfig:"JWT_SECRET"`
	JWTIssuer      string   `yaml:"jwt_issuer"      envconfig:"JWT_ISSUER"`
	AdminEmails    []string `yaml:"admin_emails"    split_words:"true"`
	CommitteesFile string   `yaml:"committees_file" split_words:"true"`

	Allocator AllocatorConfig `yaml:"allocator"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Mail      MailConfig      `yaml:"mail"`
}

// AllocatorConfig tunes the seat allocator
type AllocatorConfig struct {
	MaxAttempts int `yaml:"max_attempts" split_words:"true"`
}

// NotifierConfig tunes the notification worker pool
type NotifierConfig struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

// MailConfig selects the outbound mail queue
type MailConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr" split_words:"true"`
	RedisKey  string `yaml:"redis_key"  split_words:"true"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		DatabasePath:   "munreg.db",
		LogLevel:       "info",
		LogFormat:      "text",
		JWTIssuer:      "munreg",
		CommitteesFile: "committees.yaml",
		Allocator:      AllocatorConfig{MaxAttempts: 5},
		Notifier:       NotifierConfig{Workers: 4, Timeout: 10 * time.Second},
		Mail: MailConfig{
			Backend:   MailBackendSQLite,
			RedisAddr: "localhost:6379",
			RedisKey:  "munreg:mail",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and MUNREG_* environment overrides, then validates it. Command
// flags are applied by the caller afterwards.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Mail.Backend = strings.ToLower(strings.TrimSpace(c.Mail.Backend))

	var emails []string
	for _, email := range c.AdminEmails {
		if email = strings.TrimSpace(email); email != "" {
			emails = append(emails, email)
		}
	}
	c.AdminEmails = emails
}

// Validate checks value ranges. It does not require a JWT secret; see
// RequireJWTSecret.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path must not be empty"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log_level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log_format %q", c.LogFormat))
	}
	if c.Allocator.MaxAttempts < 1 || c.Allocator.MaxAttempts > 100 {
		errs = append(errs, fmt.Errorf("allocator.max_attempts must be between 1 and 100, got %d", c.Allocator.MaxAttempts))
	}
	if c.Notifier.Workers < 1 || c.Notifier.Workers > 256 {
		errs = append(errs, fmt.Errorf("notifier.workers must be between 1 and 256, got %d", c.Notifier.Workers))
	}
	if c.Notifier.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("notifier.timeout must be positive, got %s", c.Notifier.Timeout))
	}
	switch c.Mail.Backend {
	case MailBackendSQLite:
	case MailBackendRedis:
		if c.Mail.RedisAddr == "" {
			errs = append(errs, errors.New("mail.redis_addr is required for the redis backend"))
		}
		if c.Mail.RedisKey == "" {
			errs = append(errs, errors.New("mail.redis_key is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid mail.backend %q", c.Mail.Backend))
	}
	return errors.Join(errs...)
}

// RequireJWTSecret fails when no signing secret is configured. Commands
// that verify or mint tokens call it.
func (c *Config) RequireJWTSecret() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("jwt_secret must be at least 16 characters")
	}
	return nil
}
