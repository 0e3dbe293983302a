// Package config loads complyxd settings from a YAML file, an optional .env
// file and COMPLYX_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COMPLYX_"

// Config is the complete daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
	AI        AIConfig        `yaml:"ai"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Retention RetentionConfig `yaml:"retention"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	TLS             bool          `yaml:"tls"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	// GatewayToken, when set, must accompany every authenticated request.
	GatewayToken string `yaml:"gateway_token"`
}

type StorageConfig struct {
	Driver        string `yaml:"driver" validate:"oneof=memory file badger"`
	DataDir       string `yaml:"data_dir" validate:"required_unless=Driver memory"`
	EncryptionKey string `yaml:"encryption_key"`
}

type AuditConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory sqlite postgres"`
	DSN    string `yaml:"dsn" validate:"required_unless=Driver memory"`
}

type LoggingConfig struct {
	Env   string `yaml:"env" validate:"oneof=development production"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

type AIConfig struct {
	Provider    string        `yaml:"provider" validate:"oneof=none openai"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key" validate:"required_if=Provider openai"`
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	Temperature float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
}

type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
}

type RateLimitConfig struct {
	// RPS of zero disables limiting.
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"gte=0"`
}

type TracingConfig struct {
	Exporter string `yaml:"exporter" validate:"oneof=none stdout"`
}

type RetentionConfig struct {
	ArchivedYears int `yaml:"archived_years" validate:"gte=1"`
	AuditYears    int `yaml:"audit_years" validate:"gte=1"`
}

type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminEmail    string `yaml:"admin_email" validate:"omitempty,email"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":7002",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage:   StorageConfig{Driver: "file", DataDir: "./data"},
		Audit:     AuditConfig{Driver: "sqlite", DSN: "./data/audit.db"},
		Logging:   LoggingConfig{Env: "development"},
		AI:        AIConfig{Provider: "none", Temperature: 0.2, MaxTokens: 800, Timeout: 30 * time.Second},
		Scheduler: SchedulerConfig{Interval: 5 * time.Minute},
		RateLimit: RateLimitConfig{RPS: 50, Burst: 100},
		Tracing:   TracingConfig{Exporter: "none"},
		Retention: RetentionConfig{ArchivedYears: 7, AuditYears: 10},
		Bootstrap: BootstrapConfig{AdminUsername: "admin", AdminEmail: "admin@localhost.localdomain"},
	}
}

// Load builds the configuration. path may be empty; envFiles that do not
// exist are skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(parts, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("ADDR", &c.Server.Addr)
	boolean("TLS", &c.Server.TLS)
	dur("READ_TIMEOUT", &c.Server.ReadTimeout)
	dur("WRITE_TIMEOUT", &c.Server.WriteTimeout)
	dur("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	str("GATEWAY_TOKEN", &c.Server.GatewayToken)

	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("DATA_DIR", &c.Storage.DataDir)
	str("ENCRYPTION_KEY", &c.Storage.EncryptionKey)

	str("AUDIT_DRIVER", &c.Audit.Driver)
	str("AUDIT_DSN", &c.Audit.DSN)

	str("ENV", &c.Logging.Env)
	str("LOG_LEVEL", &c.Logging.Level)

	str("AI_PROVIDER", &c.AI.Provider)
	str("AI_MODEL", &c.AI.Model)
	str("AI_BASE_URL", &c.AI.BaseURL)
	integer("AI_MAX_TOKENS", &c.AI.MaxTokens)
	dur("AI_TIMEOUT", &c.AI.Timeout)
	if v, ok := lookup("OPENAI_API_KEY"); ok {
		c.AI.APIKey = v
	}
	str("AI_API_KEY", &c.AI.APIKey)

	dur("SCHEDULER_INTERVAL", &c.Scheduler.Interval)

	if v, ok := lookup(EnvPrefix + "RATE_LIMIT_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT_RPS: %w", EnvPrefix, err))
		} else {
			c.RateLimit.RPS = f
		}
	}
	integer("RATE_LIMIT_BURST", &c.RateLimit.Burst)

	str("TRACING_EXPORTER", &c.Tracing.Exporter)

	integer("RETENTION_ARCHIVED_YEARS", &c.Retention.ArchivedYears)
	integer("RETENTION_AUDIT_YEARS", &c.Retention.AuditYears)

	str("ADMIN_USERNAME", &c.Bootstrap.AdminUsername)
	str("ADMIN_EMAIL", &c.Bootstrap.AdminEmail)

	return errors.Join(errs...)
}
